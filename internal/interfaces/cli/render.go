package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/example/meal-scheduler/internal/application/usecases"
	"github.com/example/meal-scheduler/internal/domain/meal"
)

const dateLayout = "2006-01-02"

type runOutput struct {
	RunID   string              `json:"run_id"`
	Email   string              `json:"email"`
	Synced  int                 `json:"synced_slots"`
	Summary usecases.RunSummary `json:"summary"`
	Error   string              `json:"error,omitempty"`
}

type slotOutput struct {
	Date        string `json:"date"`
	Label       string `json:"label"`
	Status      string `json:"status"`
	TargetTime  string `json:"target_time"`
	OrderedDish string `json:"ordered_dish,omitempty"`
}

type menuOutput struct {
	Date   string       `json:"date"`
	Label  string       `json:"label"`
	Dishes []dishOutput `json:"dishes"`
}

type dishOutput struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Restaurant string `json:"restaurant,omitempty"`
	Price      string `json:"price,omitempty"`
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderRuns(w io.Writer, format string, runs []usecases.UserRun) error {
	if format == "json" {
		out := make([]runOutput, 0, len(runs))
		for _, r := range runs {
			out = append(out, runOutput{RunID: r.RunID, Email: r.Email, Synced: r.Synced, Summary: r.Summary, Error: r.ErrMessage()})
		}
		return writeJSON(w, out)
	}

	var ordered, failed, errs int
	for _, r := range runs {
		fmt.Fprintf(w, "%s  synced=%d  run=%s\n", r.Email, r.Synced, r.RunID)
		if r.Err != nil {
			errs++
			fmt.Fprintf(w, "  error: %s\n", r.Err)
		}
		s := r.Summary
		for _, o := range s.Successful {
			fmt.Fprintf(w, "  ordered          %s -> %s\n", o.SlotRef, o.Dish)
		}
		for _, ref := range s.AlreadyOrdered {
			fmt.Fprintf(w, "  already ordered  %s\n", ref)
		}
		for _, u := range s.Unavailable {
			fmt.Fprintf(w, "  unavailable      %s (%s)\n", u.SlotRef, u.Reason)
		}
		for _, ref := range s.NoMatch {
			fmt.Fprintf(w, "  no match         %s\n", ref)
		}
		for _, f := range s.Failed {
			fmt.Fprintf(w, "  failed           %s: %s\n", f.SlotRef, f.Error)
		}
		if s.Total() == 0 && r.Err == nil {
			fmt.Fprintln(w, "  nothing to do")
		}
		ordered += len(s.Successful)
		failed += len(s.Failed)
	}
	fmt.Fprintf(w, "total: users=%d ordered=%d failed=%d errors=%d\n", len(runs), ordered, failed, errs)
	return nil
}

func renderSlots(w io.Writer, format string, slots []meal.Slot) error {
	out := make([]slotOutput, 0, len(slots))
	for _, s := range slots {
		out = append(out, slotOutput{
			Date:        s.Date.Format(dateLayout),
			Label:       s.Label,
			Status:      string(s.Status),
			TargetTime:  s.TargetTime.Format("2006-01-02 15:04"),
			OrderedDish: s.OrderedDish,
		})
	}
	if format == "json" {
		return writeJSON(w, out)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tLABEL\tSTATUS\tTARGET\tDISH")
	for _, s := range out {
		dish := s.OrderedDish
		if dish == "" {
			dish = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", s.Date, s.Label, s.Status, s.TargetTime, dish)
	}
	return tw.Flush()
}

func renderMenu(w io.Writer, format string, m usecases.Menu) error {
	out := menuOutput{Date: m.Slot.Date.Format(dateLayout), Label: m.Slot.Label, Dishes: make([]dishOutput, 0, len(m.Dishes))}
	for _, d := range m.Dishes {
		do := dishOutput{ID: d.ID, Name: d.Name, Restaurant: d.Restaurant}
		if d.Price != nil {
			do.Price = d.Price.StringFixed(2)
		}
		out.Dishes = append(out.Dishes, do)
	}
	if format == "json" {
		return writeJSON(w, out)
	}

	fmt.Fprintf(w, "%s %s\n", out.Date, out.Label)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DISH\tRESTAURANT\tPRICE")
	for _, d := range out.Dishes {
		price := d.Price
		if price == "" {
			price = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", d.Name, d.Restaurant, price)
	}
	return tw.Flush()
}
