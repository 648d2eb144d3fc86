package ingest

import (
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/JonMunkholm/OrderImport/internal/orders"
)

// errFiltered marks a well-formed row that is not a revenue event.
var errFiltered = errors.New("not a revenue event")

// elementOrder is the child layout of one tag-delimited order element.
type elementOrder struct {
	OrderID    string `xml:"order_id"`
	CampaignID string `xml:"advcampaign_id"`
	Status     string `xml:"status"`
	Cart       string `xml:"cart"`
	Currency   string `xml:"currency"`
	ActionDate string `xml:"action_date"`
}

// Normalizer maps raw rows and elements onto canonical orders.
type Normalizer struct {
	fields        FieldMap
	revenueMarker string
	now           func() time.Time
}

// NewNormalizer returns a normalizer for the given delimited mapping and
// revenue marker. now stamps the import time; nil means time.Now.
func NewNormalizer(fields FieldMap, revenueMarker string, now func() time.Time) *Normalizer {
	if now == nil {
		now = time.Now
	}
	return &Normalizer{fields: fields, revenueMarker: revenueMarker, now: now}
}

// FromRecord maps a delimited row. It returns errFiltered for rows whose
// event type is not the revenue marker and a *RecordError for rows that
// cannot be mapped.
func (n *Normalizer) FromRecord(rec RawRecord) (orders.Order, error) {
	if strings.TrimSpace(rec.Fields[n.fields.EventType]) != n.revenueMarker {
		return orders.Order{}, errFiltered
	}

	orderID := strings.TrimSpace(rec.Fields[n.fields.OrderID])
	if orderID == "" {
		return orders.Order{}, &RecordError{Line: rec.Line, Reason: "empty " + n.fields.OrderID}
	}

	price, err := parseAmount(rec.Fields[n.fields.Price])
	if err != nil {
		return orders.Order{}, &RecordError{Line: rec.Line, Reason: err.Error()}
	}

	eventAt, err := parseEventTime(rec.Fields[n.fields.EventTime])
	if err != nil {
		return orders.Order{}, &RecordError{Line: rec.Line, Reason: err.Error()}
	}

	return orders.Order{
		OrderID:    orderID,
		ShopID:     strings.TrimSpace(rec.Fields[n.fields.ShopID]),
		Price:      price,
		EventAt:    eventAt,
		Source:     string(FormatDelimited),
		ImportedAt: n.now().UTC(),
	}, nil
}

// FromElement maps one complete element. Every element is a candidate order;
// there is no business filter for tag-delimited input.
func (n *Normalizer) FromElement(elem []byte, offset int64) (orders.Order, error) {
	var e elementOrder
	if err := xml.Unmarshal(elem, &e); err != nil {
		return orders.Order{}, &RecordError{Offset: offset, Reason: fmt.Sprintf("malformed element: %v", err)}
	}

	orderID := strings.TrimSpace(e.OrderID)
	if orderID == "" {
		return orders.Order{}, &RecordError{Offset: offset, Reason: "empty order_id"}
	}

	price, err := parseAmount(e.Cart)
	if err != nil {
		return orders.Order{}, &RecordError{Offset: offset, Reason: err.Error()}
	}

	eventAt, err := parseEventTime(e.ActionDate)
	if err != nil {
		return orders.Order{}, &RecordError{Offset: offset, Reason: err.Error()}
	}

	return orders.Order{
		OrderID:    orderID,
		ShopID:     strings.TrimSpace(e.CampaignID),
		Status:     strings.TrimSpace(e.Status),
		Price:      price,
		Currency:   strings.TrimSpace(e.Currency),
		EventAt:    eventAt,
		Source:     string(FormatElement),
		ImportedAt: n.now().UTC(),
	}, nil
}
