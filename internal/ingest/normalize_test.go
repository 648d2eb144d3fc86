package ingest

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = func() time.Time { return time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC) }

func revenueRecord(orderID, price string) RawRecord {
	return RawRecord{
		Line: 2,
		Fields: map[string]string{
			"event_type":            DefaultRevenueMarker,
			"unique_transaction_id": orderID,
			"program_id":            "1234",
			"total_sale_amount":     price,
			"click_timestamp":       "2024-01-15 10:00:00",
		},
	}
}

func TestNormalizerFromRecord(t *testing.T) {
	n := NewNormalizer(DefaultFieldMap, DefaultRevenueMarker, fixedNow)

	o, err := n.FromRecord(revenueRecord("TX-1", "$1,234.50"))
	require.NoError(t, err)

	assert.Equal(t, "TX-1", o.OrderID)
	assert.Equal(t, "1234", o.ShopID)
	assert.Equal(t, "1234.5", o.Price.String())
	require.NotNil(t, o.EventAt)
	assert.Equal(t, time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC), *o.EventAt)
	assert.Equal(t, fixedNow(), o.ImportedAt)
	assert.Equal(t, "delimited", o.Source)
}

func TestNormalizerFromRecord_FiltersNonRevenue(t *testing.T) {
	n := NewNormalizer(DefaultFieldMap, DefaultRevenueMarker, fixedNow)

	rec := revenueRecord("TX-1", "10")
	rec.Fields["event_type"] = "Paid Click"

	_, err := n.FromRecord(rec)
	assert.ErrorIs(t, err, errFiltered)
}

func TestNormalizerFromRecord_Rejects(t *testing.T) {
	n := NewNormalizer(DefaultFieldMap, DefaultRevenueMarker, fixedNow)

	tests := []struct {
		name string
		rec  RawRecord
	}{
		{"empty order id", revenueRecord("  ", "10")},
		{"bad price", revenueRecord("TX-1", "ten dollars")},
		{"bad timestamp", func() RawRecord {
			r := revenueRecord("TX-1", "10")
			r.Fields["click_timestamp"] = "yesterday"
			return r
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := n.FromRecord(tt.rec)
			var rerr *RecordError
			require.True(t, errors.As(err, &rerr), "got %v", err)
			assert.Equal(t, 2, rerr.Line)
		})
	}
}

func TestNormalizerFromElement(t *testing.T) {
	n := NewNormalizer(DefaultFieldMap, DefaultRevenueMarker, fixedNow)

	elem := []byte(`<item>
  <order_id> 555 </order_id>
  <advcampaign_id>42</advcampaign_id>
  <status>approved</status>
  <cart>99.90</cart>
  <currency>RUB</currency>
  <action_date>2024-01-17</action_date>
</item>`)

	o, err := n.FromElement(elem, 100)
	require.NoError(t, err)

	assert.Equal(t, "555", o.OrderID)
	assert.Equal(t, "42", o.ShopID)
	assert.Equal(t, "approved", o.Status)
	assert.Equal(t, "99.9", o.Price.String())
	assert.Equal(t, "RUB", o.Currency)
	assert.Equal(t, "element", o.Source)
}

func TestNormalizerFromElement_Rejects(t *testing.T) {
	n := NewNormalizer(DefaultFieldMap, DefaultRevenueMarker, fixedNow)

	for name, elem := range map[string]string{
		"malformed":  "<item><order_id>1</item>",
		"no order":   "<item><cart>1</cart></item>",
		"empty":      "<item></item>",
		"bad amount": "<item><order_id>1</order_id><cart>abc</cart></item>",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := n.FromElement([]byte(elem), 42)
			var rerr *RecordError
			require.True(t, errors.As(err, &rerr), "got %v", err)
			assert.Equal(t, int64(42), rerr.Offset)
		})
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", "0", false},
		{"12", "12", false},
		{" 1,234.56 ", "1234.56", false},
		{"$10.50", "10.5", false},
		{"€3", "3", false},
		{"(12.50)", "-12.5", false},
		{"-4", "-4", false},
		{"abc", "", true},
		{"1e5", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseAmount(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestParseEventTime(t *testing.T) {
	got, err := parseEventTime("")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = parseEventTime("2024-03-05T08:00:00+02:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 5, 6, 0, 0, 0, time.UTC), *got)

	got, err = parseEventTime("01/15/2024")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), *got)

	got, err = parseEventTime("2024-03-05T08:00:00.123456789Z")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 5, 8, 0, 0, 123456000, time.UTC), *got, "truncated to microseconds")

	_, err = parseEventTime("15.01.2024")
	assert.Error(t, err)
}
