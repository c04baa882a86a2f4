package energy

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Container names where a payload keeps its data points.
type Container string

const (
	// ContainerSeries reads series[0].data as [date_token, value] pairs.
	ContainerSeries Container = "series"
	// ContainerRows reads response.data as objects keyed by field name.
	ContainerRows Container = "rows"
)

// DateEncoding is the textual form of a source date token.
type DateEncoding string

const (
	EncodingCompactDate DateEncoding = "YYYYMMDD"
	EncodingYearMonth   DateEncoding = "YYYY-MM"
	EncodingISODate     DateEncoding = "YYYY-MM-DD"
)

// Schema declares how to locate the date and value of each data point.
// DateField and ValueField are only consulted for ContainerRows.
type Schema struct {
	Container    Container
	DateField    string
	ValueField   string
	DateEncoding DateEncoding
}

// Normalizer turns raw payloads into canonical records.
// OnSkip, when set, receives the reason for every skipped data point.
type Normalizer struct {
	OnSkip func(err error)
}

type envelope struct {
	Series []struct {
		Data []json.RawMessage `json:"data"`
	} `json:"series"`
	Response *struct {
		Data []json.RawMessage `json:"data"`
	} `json:"response"`
}

// Normalize yields the valid records found in payload. A nil payload, an
// undecodable body or a missing container yields nothing. Malformed points are
// skipped one by one. The returned sequence can be ranged over once.
func (n Normalizer) Normalize(payload *RawPayload, stateID int, ct CommodityType) iter.Seq[CanonicalRecord] {
	consumed := false
	return func(yield func(CanonicalRecord) bool) {
		if consumed {
			return
		}
		consumed = true

		points, ok := n.points(payload, ct.Schema)
		if !ok {
			return
		}

		for i, raw := range points {
			rec, err := n.record(raw, stateID, ct)
			if err != nil {
				n.skip(fmt.Errorf("point %d: %w", i, err))
				continue
			}
			if !yield(rec) {
				return
			}
		}
	}
}

func (n Normalizer) points(payload *RawPayload, schema Schema) ([]json.RawMessage, bool) {
	if payload == nil || len(payload.Body) == 0 {
		return nil, false
	}

	var env envelope
	if err := json.Unmarshal(payload.Body, &env); err != nil {
		n.skip(fmt.Errorf("%w: undecodable payload: %v", ErrMalformedRecord, err))
		return nil, false
	}

	switch schema.Container {
	case ContainerRows:
		if env.Response == nil {
			return nil, false
		}
		return env.Response.Data, true
	default:
		if len(env.Series) == 0 {
			return nil, false
		}
		return env.Series[0].Data, true
	}
}

func (n Normalizer) record(raw json.RawMessage, stateID int, ct CommodityType) (CanonicalRecord, error) {
	dateTok, valueTok, err := extract(raw, ct.Schema)
	if err != nil {
		return CanonicalRecord{}, err
	}

	date, err := ParseDateToken(dateTok, ct.Schema.DateEncoding)
	if err != nil {
		return CanonicalRecord{}, err
	}

	value, err := ParseValue(valueTok)
	if err != nil {
		return CanonicalRecord{}, err
	}

	return CanonicalRecord{
		Family:  ct.Family,
		StateID: stateID,
		Type:    ct.Name,
		Date:    date,
		Value:   value,
		Source:  SourceEIA,
	}, nil
}

func (n Normalizer) skip(err error) {
	if n.OnSkip != nil {
		n.OnSkip(err)
	}
}

func extract(raw json.RawMessage, schema Schema) (string, string, error) {
	var dateRaw, valueRaw json.RawMessage

	if schema.Container == ContainerRows {
		var row map[string]json.RawMessage
		if err := json.Unmarshal(raw, &row); err != nil {
			return "", "", fmt.Errorf("%w: row is not an object", ErrMalformedRecord)
		}
		dateRaw, valueRaw = row[schema.DateField], row[schema.ValueField]
	} else {
		var pair []json.RawMessage
		if err := json.Unmarshal(raw, &pair); err != nil || len(pair) < 2 {
			return "", "", fmt.Errorf("%w: point is not a [date, value] pair", ErrMalformedRecord)
		}
		dateRaw, valueRaw = pair[0], pair[1]
	}

	dateTok, err := scalar(dateRaw)
	if err != nil {
		return "", "", fmt.Errorf("%w: date: %v", ErrMalformedRecord, err)
	}
	valueTok, err := scalar(valueRaw)
	if err != nil {
		return "", "", fmt.Errorf("%w: value: %v", ErrMalformedRecord, err)
	}
	return dateTok, valueTok, nil
}

// scalar accepts a JSON string or number and returns its text.
func scalar(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", errors.New("missing")
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var num json.Number
	if err := json.Unmarshal(raw, &num); err != nil {
		return "", fmt.Errorf("not a scalar: %s", raw)
	}
	return num.String(), nil
}

// ParseDateToken converts a source date token to a UTC calendar date.
// Compact tokens are split into year, month and day; a token that does not
// name a real calendar day is rejected rather than normalized.
func ParseDateToken(tok string, enc DateEncoding) (time.Time, error) {
	switch enc {
	case EncodingYearMonth:
		t, err := time.Parse("2006-01", tok)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: date token %q", ErrMalformedRecord, tok)
		}
		return t.UTC(), nil
	case EncodingISODate:
		t, err := time.Parse(dateLayout, tok)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: date token %q", ErrMalformedRecord, tok)
		}
		return t.UTC(), nil
	}

	if len(tok) != 8 {
		return time.Time{}, fmt.Errorf("%w: date token %q", ErrMalformedRecord, tok)
	}
	for i := 0; i < len(tok); i++ {
		if tok[i] < '0' || tok[i] > '9' {
			return time.Time{}, fmt.Errorf("%w: date token %q", ErrMalformedRecord, tok)
		}
	}

	year, _ := strconv.Atoi(tok[0:4])
	month, _ := strconv.Atoi(tok[4:6])
	day, _ := strconv.Atoi(tok[6:8])

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return time.Time{}, fmt.Errorf("%w: date token %q is not a calendar date", ErrMalformedRecord, tok)
	}
	return t, nil
}

// ParseValue parses a price or rate and rounds it to ValuePlaces decimal
// places, half away from zero. Negative values are rejected.
func ParseValue(tok string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(tok)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: value %q", ErrMalformedRecord, tok)
	}
	if d.IsNegative() {
		return decimal.Decimal{}, fmt.Errorf("%w: negative value %q", ErrMalformedRecord, tok)
	}
	return RoundValue(d), nil
}

// RoundValue applies the pipeline-wide rounding rule.
func RoundValue(d decimal.Decimal) decimal.Decimal {
	return d.Round(ValuePlaces)
}
