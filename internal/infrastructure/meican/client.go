package meican

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/example/meal-scheduler/internal/domain/meal"
)

const (
	DefaultBaseURL   = "https://meican.com"
	defaultUA        = "Mozilla/5.0 (Windows NT 6.1; Win64; x64; rv:47.0) Gecko/20100101 Firefox/47.0"
	targetTimeLayout = "2006-01-02 15:04"
	apiPrefix        = "preorder/api/v2.1/"
)

// Client talks to the Meican web API. It holds no session state; every call
// takes the Session returned by Login.
type Client struct {
	hc   *http.Client
	base string
	ua   string
	loc  *time.Location
	log  *slog.Logger
	now  func() time.Time
}

type Options struct {
	BaseURL  string
	Timeout  time.Duration
	Location *time.Location
	Logger   *slog.Logger
}

func New(opts Options) *Client {
	base := strings.TrimSpace(opts.BaseURL)
	if base == "" {
		base = DefaultBaseURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		hc:   &http.Client{Timeout: timeout},
		base: strings.TrimRight(base, "/"),
		ua:   defaultUA,
		loc:  loc,
		log:  log.With("component", "meican"),
		now:  time.Now,
	}
}

var _ meal.Catalog = (*Client)(nil)

// Login posts the direct-login form. The platform answers 200 for both
// outcomes; a successful login echoes the account name in the body.
func (c *Client) Login(ctx context.Context, email, password string) (meal.Session, error) {
	form := url.Values{
		"username":  {email},
		"password":  {password},
		"loginType": {"username"},
		"remember":  {"true"},
	}
	res, body, err := c.do(ctx, meal.Session{}, http.MethodPost, "account/directlogin", nil,
		"application/x-www-form-urlencoded", []byte(form.Encode()))
	if err != nil {
		var te *meal.TransientFetchError
		if errors.As(err, &te) {
			return meal.Session{}, err
		}
		return meal.Session{}, &meal.AuthError{Account: email, Err: err}
	}
	if !strings.Contains(string(body), email) {
		return meal.Session{}, &meal.AuthError{Account: email, Err: errors.New("username or password incorrect")}
	}

	token := cookieHeader(res.Cookies())
	if token == "" {
		return meal.Session{}, &meal.AuthError{Account: email, Err: errors.New("no session cookie issued")}
	}
	return meal.Session{Account: email, Token: token, IssuedAt: c.now().UTC()}, nil
}

type calendarResponse struct {
	DateList []struct {
		Date             string         `json:"date"`
		CalendarItemList []calendarItem `json:"calendarItemList"`
	} `json:"dateList"`
}

type calendarItem struct {
	Title      string `json:"title"`
	TargetTime int64  `json:"targetTime"`
	Status     string `json:"status"`
	UserTab    struct {
		UniqueID string `json:"uniqueId"`
		Corp     struct {
			AddressList []struct {
				FinalValue struct {
					UniqueID string `json:"uniqueId"`
				} `json:"finalValue"`
			} `json:"addressList"`
		} `json:"corp"`
	} `json:"userTab"`
	CorpOrderUser *struct {
		RestaurantItemList []struct {
			DishItemList []struct {
				Dish struct {
					Name string `json:"name"`
				} `json:"dish"`
			} `json:"dishItemList"`
		} `json:"restaurantItemList"`
	} `json:"corpOrderUser"`
}

func (c *Client) ListSlots(ctx context.Context, s meal.Session, r meal.DateRange) ([]meal.Slot, error) {
	q := url.Values{
		"beginDate":       {r.From.Format("2006-01-02")},
		"endDate":         {r.To.Format("2006-01-02")},
		"withOrderDetail": {"true"},
		"noHttpGetCache":  {strconv.FormatInt(c.now().UnixMilli(), 10)},
	}
	_, body, err := c.do(ctx, s, http.MethodGet, apiPrefix+"calendarItems/list", q, "", nil)
	if err != nil {
		return nil, c.classify("list slots", s, err)
	}
	var parsed calendarResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &meal.TransientFetchError{Op: "list slots", Err: fmt.Errorf("decode calendar: %w", err)}
	}

	var out []meal.Slot
	for _, day := range parsed.DateList {
		for _, it := range day.CalendarItemList {
			out = append(out, c.toSlot(it))
		}
	}
	return out, nil
}

func (c *Client) toSlot(it calendarItem) meal.Slot {
	target := time.UnixMilli(it.TargetTime).In(c.loc)
	status, _ := meal.NormalizeStatus(it.Status)
	sl := meal.Slot{
		ID:         it.UserTab.UniqueID,
		Label:      it.Title,
		TargetTime: target,
		Date:       meal.DateOf(target, c.loc),
		Status:     status,
		RawStatus:  it.Status,
	}
	if len(it.UserTab.Corp.AddressList) > 0 {
		sl.AddressID = it.UserTab.Corp.AddressList[0].FinalValue.UniqueID
	}
	if it.CorpOrderUser != nil {
		for _, ri := range it.CorpOrderUser.RestaurantItemList {
			for _, di := range ri.DishItemList {
				if di.Dish.Name != "" {
					sl.OrderedDish = di.Dish.Name
					return sl
				}
			}
		}
	}
	return sl
}

// ListDishes walks every restaurant offered for the slot. Section headers and
// entries without a price are not orderable and are skipped.
func (c *Client) ListDishes(ctx context.Context, s meal.Session, slot meal.Slot) ([]meal.Dish, error) {
	target := slot.TargetTime.In(c.loc).Format(targetTimeLayout)
	q := url.Values{
		"tabUniqueId":    {slot.ID},
		"targetTime":     {target},
		"noHttpGetCache": {strconv.FormatInt(c.now().UnixMilli(), 10)},
	}
	_, body, err := c.do(ctx, s, http.MethodGet, apiPrefix+"restaurants/list", q, "", nil)
	if err != nil {
		return nil, c.classify("list restaurants", s, err)
	}
	var rl struct {
		RestaurantList []struct {
			UniqueID string `json:"uniqueId"`
			Name     string `json:"name"`
		} `json:"restaurantList"`
	}
	if err := json.Unmarshal(body, &rl); err != nil {
		return nil, &meal.TransientFetchError{Op: "list restaurants", Err: err}
	}

	var out []meal.Dish
	for _, rest := range rl.RestaurantList {
		q := url.Values{
			"restaurantUniqueId": {rest.UniqueID},
			"tabUniqueId":        {slot.ID},
			"targetTime":         {target},
			"noHttpGetCache":     {strconv.FormatInt(c.now().UnixMilli(), 10)},
		}
		_, body, err := c.do(ctx, s, http.MethodGet, apiPrefix+"restaurants/show", q, "", nil)
		if err != nil {
			return nil, c.classify("list dishes", s, err)
		}
		var show struct {
			DishList []struct {
				ID          json.Number `json:"id"`
				Name        string      `json:"name"`
				PriceString *string     `json:"priceString"`
				IsSection   bool        `json:"isSection"`
			} `json:"dishList"`
		}
		if err := json.Unmarshal(body, &show); err != nil {
			return nil, &meal.TransientFetchError{Op: "list dishes", Err: err}
		}
		for _, d := range show.DishList {
			if d.IsSection || d.PriceString == nil {
				continue
			}
			out = append(out, meal.Dish{
				ID:         d.ID.String(),
				Name:       d.Name,
				Price:      meal.ParsePrice(*d.PriceString),
				Restaurant: rest.Name,
			})
		}
	}
	return out, nil
}

func (c *Client) PlaceOrder(ctx context.Context, s meal.Session, slot meal.Slot, dish meal.Dish, addressID string) (meal.Receipt, error) {
	items, _ := json.Marshal([]map[string]string{{"count": "1", "dishId": dish.ID}})
	q := url.Values{
		"order":               {string(items)},
		"tabUniqueId":         {slot.ID},
		"targetTime":          {slot.TargetTime.In(c.loc).Format(targetTimeLayout)},
		"corpAddressUniqueId": {addressID},
		"userAddressUniqueId": {addressID},
	}
	_, body, err := c.do(ctx, s, http.MethodPost, apiPrefix+"orders/add", q, "", nil)
	if err != nil {
		if ae := c.authError(s, err); ae != nil {
			return meal.Receipt{}, ae
		}
		return meal.Receipt{}, &meal.OrderError{SlotLabel: slot.Label, Dish: dish.Name, Err: err}
	}

	var parsed struct {
		Status  string `json:"status"`
		Message string `json:"message"`
		Order   struct {
			UniqueID string `json:"uniqueId"`
		} `json:"order"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return meal.Receipt{}, &meal.OrderError{SlotLabel: slot.Label, Dish: dish.Name, Err: fmt.Errorf("decode order response: %w", err)}
	}
	if parsed.Status != "" && !strings.EqualFold(parsed.Status, "SUCCESSFUL") {
		msg := parsed.Message
		if msg == "" {
			msg = parsed.Status
		}
		return meal.Receipt{}, &meal.OrderError{SlotLabel: slot.Label, Dish: dish.Name, Err: errors.New(msg)}
	}
	c.log.Info("order placed", "slot", slot.Label, "dish", dish.Name, "order_id", parsed.Order.UniqueID)
	return meal.Receipt{OrderID: parsed.Order.UniqueID, Status: parsed.Status}, nil
}

// --- internals ---

// statusError is a non-2xx answer. The platform reports failures as
// {"error": ..., "error_description": ...}.
type statusError struct {
	Code        int
	Kind        string
	Description string
}

func (e *statusError) Error() string {
	if e.Kind == "" && e.Description == "" {
		return fmt.Sprintf("http %d", e.Code)
	}
	return fmt.Sprintf("http %d: [%s] %s", e.Code, e.Kind, e.Description)
}

func (c *Client) authError(s meal.Session, err error) error {
	var se *statusError
	if errors.As(err, &se) && (se.Code == http.StatusUnauthorized || se.Code == http.StatusForbidden) {
		return &meal.AuthError{Account: s.Account, Err: err}
	}
	return nil
}

// classify maps a read-side failure onto the domain error taxonomy.
func (c *Client) classify(op string, s meal.Session, err error) error {
	if ae := c.authError(s, err); ae != nil {
		return ae
	}
	var te *meal.TransientFetchError
	if errors.As(err, &te) {
		return &meal.TransientFetchError{Op: op, Err: te.Err}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (c *Client) do(ctx context.Context, s meal.Session, method, path string, query url.Values, contentType string, body []byte) (*http.Response, []byte, error) {
	rawURL := c.base + "/" + path
	if len(query) > 0 {
		rawURL += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, bytes.NewReader(body))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("user-agent", c.ua)
	req.Header.Set("cache-control", "no-cache")
	if contentType != "" {
		req.Header.Set("content-type", contentType)
	}
	if s.Token != "" {
		req.Header.Set("cookie", s.Token)
	}

	res, err := c.hc.Do(req)
	if err != nil {
		return nil, nil, &meal.TransientFetchError{Op: path, Err: err}
	}
	defer res.Body.Close()
	b, err := io.ReadAll(res.Body)
	if err != nil {
		return res, nil, &meal.TransientFetchError{Op: path, Err: err}
	}

	c.log.Debug("meican request", "method", method, "path", path, "status", res.StatusCode)

	if res.StatusCode >= 500 {
		return res, b, &meal.TransientFetchError{Op: path, Err: decodeStatus(res.StatusCode, b)}
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return res, b, decodeStatus(res.StatusCode, b)
	}
	return res, b, nil
}

func decodeStatus(code int, body []byte) *statusError {
	var r struct {
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	_ = json.Unmarshal(body, &r)
	return &statusError{Code: code, Kind: r.Error, Description: r.ErrorDescription}
}

func cookieHeader(cs []*http.Cookie) string {
	parts := make([]string, 0, len(cs))
	for _, ck := range cs {
		if ck.Name == "" || ck.MaxAge < 0 {
			continue
		}
		parts = append(parts, ck.Name+"="+ck.Value)
	}
	return strings.Join(parts, "; ")
}
