package cli

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/meal-scheduler/internal/application/usecases"
	"github.com/example/meal-scheduler/internal/domain/meal"
)

func day(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }

func sampleRuns() []usecases.UserRun {
	return []usecases.UserRun{
		{
			RunID:  "run-1",
			Email:  "a@example.com",
			Synced: 3,
			Summary: usecases.RunSummary{
				Successful:     []usecases.OrderedSlot{{SlotRef: usecases.SlotRef{Date: day(10), Label: "午餐"}, Dish: "自助套餐"}},
				AlreadyOrdered: []usecases.SlotRef{{Date: day(11), Label: "午餐"}},
				Unavailable:    []usecases.SkippedSlot{{SlotRef: usecases.SlotRef{Date: day(12), Label: "晚餐"}, Reason: "closed"}},
				Failed:         []usecases.FailedSlot{{SlotRef: usecases.SlotRef{Date: day(13), Label: "午餐"}, Error: "sold out"}},
			},
		},
		{RunID: "run-2", Email: "b@example.com", Err: errors.New("login failed")},
	}
}

func golden(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestRenderRuns_Text(t *testing.T) {
	runs := append(sampleRuns(), usecases.UserRun{RunID: "run-3", Email: "c@example.com", Synced: 2})

	var buf bytes.Buffer
	require.NoError(t, renderRuns(&buf, "text", runs))
	golden(t).Assert(t, "runs_text", buf.Bytes())
}

func TestRenderRuns_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderRuns(&buf, "json", sampleRuns()))
	golden(t).Assert(t, "runs_json", buf.Bytes())
}

func TestRenderSlots(t *testing.T) {
	cst := time.FixedZone("CST", 8*3600)
	slots := []meal.Slot{
		{Date: day(10), Label: "午餐", Status: meal.StatusOrdered, TargetTime: time.Date(2024, 1, 10, 11, 0, 0, 0, cst), OrderedDish: "自助套餐"},
		{Date: day(11), Label: "午餐", Status: meal.StatusAvailable, TargetTime: time.Date(2024, 1, 11, 11, 0, 0, 0, cst)},
	}

	var buf bytes.Buffer
	require.NoError(t, renderSlots(&buf, "json", slots))
	assert.JSONEq(t, `[
		{"date":"2024-01-10","label":"午餐","status":"ordered","target_time":"2024-01-10 11:00","ordered_dish":"自助套餐"},
		{"date":"2024-01-11","label":"午餐","status":"available","target_time":"2024-01-11 11:00"}
	]`, buf.String())

	buf.Reset()
	require.NoError(t, renderSlots(&buf, "text", slots))
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 3)
	assert.Contains(t, string(lines[0]), "DATE")
	assert.Contains(t, string(lines[1]), "自助套餐")
	assert.Contains(t, string(lines[2]), "available")
}

func TestRenderMenu(t *testing.T) {
	price := decimal.RequireFromString("25.5")
	menu := usecases.Menu{
		Slot: meal.Slot{Date: day(10), Label: "自助午餐"},
		Dishes: []meal.Dish{
			{ID: "d1", Name: "自助套餐", Restaurant: "食堂", Price: &price},
			{ID: "d2", Name: "牛肉面"},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, renderMenu(&buf, "json", menu))
	assert.JSONEq(t, `{"date":"2024-01-10","label":"自助午餐","dishes":[
		{"id":"d1","name":"自助套餐","restaurant":"食堂","price":"25.50"},
		{"id":"d2","name":"牛肉面"}
	]}`, buf.String())

	buf.Reset()
	require.NoError(t, renderMenu(&buf, "text", menu))
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 4)
	assert.Equal(t, "2024-01-10 自助午餐", string(lines[0]))
	assert.Contains(t, string(lines[2]), "25.50")
	assert.Contains(t, string(lines[3]), "-")
}
