// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating request data:
// JSON bodies, path ids and the query strings of list and report endpoints.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"fina/internal/core"
	"fina/internal/ledger"
)

const maxBodyBytes = 1 << 20

var (
	ErrMalformedBody   = errors.New("malformed request body")
	ErrBadParameter    = errors.New("invalid parameter")
	ErrUnsupportedMIME = errors.New("unsupported content type")
)

// DecodeJSON reads a single JSON object from the request body into dst.
// Unknown fields are rejected. Decoding errors raised by the domain types
// (amounts, dates, directions) are returned unwrapped so they map to 422.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err != nil || mediaType != "application/json" {
			return fmt.Errorf("%w: %q", ErrUnsupportedMIME, ct)
		}
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if core.IsValidation(err) {
			return err
		}
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", ErrMalformedBody)
		}
		return fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after JSON object", ErrMalformedBody)
	}
	return nil
}

// PathID parses a positive integer path value.
func PathID(r *http.Request, name string) (int64, error) {
	raw := r.PathValue(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s %q", ErrBadParameter, name, raw)
	}
	return id, nil
}

func queryDate(query url.Values, key string) (core.Date, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return core.Date{}, nil
	}
	return core.ParseDate(v)
}

func queryID(query url.Values, key string) (int64, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s %q", ErrBadParameter, key, v)
	}
	return id, nil
}

// ParseReportQuery reads from, to and wallet. Missing dates are left zero
// so the report falls back to the latest month with activity.
func ParseReportQuery(query url.Values) (ledger.ReportQuery, error) {
	var q ledger.ReportQuery
	var err error
	if q.From, err = queryDate(query, "from"); err != nil {
		return q, err
	}
	if q.To, err = queryDate(query, "to"); err != nil {
		return q, err
	}
	walletID, err := queryID(query, "wallet")
	if err != nil {
		return q, err
	}
	if walletID != 0 {
		q.WalletID = &walletID
	}
	return q, q.Validate()
}

// ParseTransactionQuery reads the listing filter and the page number.
func ParseTransactionQuery(query url.Values) (ledger.TransactionFilter, int, error) {
	var f ledger.TransactionFilter
	var err error
	if f.WalletID, err = queryID(query, "wallet"); err != nil {
		return f, 0, err
	}
	if f.CategoryID, err = queryID(query, "category"); err != nil {
		return f, 0, err
	}
	if v := strings.TrimSpace(query.Get("type")); v != "" {
		if f.Type, err = core.ParseTransactionType(v); err != nil {
			return f, 0, err
		}
	}
	f.PairID = strings.TrimSpace(query.Get("pair"))
	if f.From, err = queryDate(query, "from"); err != nil {
		return f, 0, err
	}
	if f.To, err = queryDate(query, "to"); err != nil {
		return f, 0, err
	}

	page := 1
	if v := strings.TrimSpace(query.Get("page")); v != "" {
		page, err = strconv.Atoi(v)
		if err != nil || page < 1 {
			return f, 0, fmt.Errorf("%w: page %q", ErrBadParameter, v)
		}
	}
	return f, page, nil
}

// ParseWalletKind maps the kind query parameter: "", "all", "asset" or "debt".
func ParseWalletKind(s string) (core.WalletKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return core.AllWallets, nil
	case "asset", "assets":
		return core.AssetWallets, nil
	case "debt", "debts", "liability":
		return core.DebtWallets, nil
	}
	return 0, fmt.Errorf("%w: kind %q", ErrBadParameter, s)
}

// ParseCategoryType maps the optional type query parameter; empty means all.
func ParseCategoryType(s string) (core.TransactionType, error) {
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}
	return core.ParseTransactionType(s)
}

// QueryBool reads a flag such as cascade=1 or cascade=true.
func QueryBool(query url.Values, key string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(query.Get(key)))
	return err == nil && v
}
