package errors

import (
	"strings"
	"testing"
)

func TestFetchErrorUnwraps(t *testing.T) {
	err := NewFetchError("/market-quote/quotes", "NSE_FO|1001", ErrTimeout)
	if !Is(err, ErrTimeout) {
		t.Error("FetchError should unwrap to its cause")
	}
	var fe *FetchError
	if !As(err, &fe) {
		t.Fatal("As should match FetchError")
	}
	if fe.Endpoint != "/market-quote/quotes" || fe.Key != "NSE_FO|1001" {
		t.Errorf("fields = %+v", fe)
	}
}

func TestDataErrorUnwraps(t *testing.T) {
	err := NewDataError("chain", "NIFTY", "empty chain", ErrNoData)
	if !Is(err, ErrNoData) {
		t.Error("DataError should unwrap to its cause")
	}
	if !strings.Contains(err.Error(), "NIFTY") {
		t.Errorf("message should name the subject: %q", err.Error())
	}
}

func TestWrapPreservesSentinel(t *testing.T) {
	err := Wrapf(ErrConfigInvalid, "loading %s", "config.toml")
	if !Is(err, ErrConfigInvalid) {
		t.Error("wrapping must preserve the sentinel")
	}
	if !strings.Contains(err.Error(), "config.toml") {
		t.Errorf("wrapped message lost context: %q", err.Error())
	}
	if Wrap(nil, "anything") != nil {
		t.Error("wrapping nil should stay nil")
	}
}
