package validator

import (
	"strings"
	"testing"
	"time"

	"pedalo/pkg/logger"
	"pedalo/pkg/model"
)

func newTestValidator() *BookingValidator {
	log := logger.New(logger.Config{Level: logger.ERROR, Format: logger.TEXT})
	return NewBookingValidator(5*time.Minute, log)
}

func validQuoteRequest() *model.QuoteRequest {
	now := time.Now().UTC()
	return &model.QuoteRequest{
		AssetID:   "64f000000000000000000001",
		StartTime: now.Add(time.Hour),
		EndTime:   now.Add(3 * time.Hour),
	}
}

func TestValidateQuoteRequestAccepts(t *testing.T) {
	if err := newTestValidator().ValidateQuoteRequest(validQuoteRequest()); err != nil {
		t.Fatalf("ValidateQuoteRequest() = %v, want nil", err)
	}
}

func TestValidateQuoteRequestWithinSkewGrace(t *testing.T) {
	req := validQuoteRequest()
	req.StartTime = time.Now().UTC().Add(-2 * time.Minute)
	req.EndTime = req.StartTime.Add(2 * time.Hour)

	if err := newTestValidator().ValidateQuoteRequest(req); err != nil {
		t.Fatalf("start inside the skew grace should pass, got %v", err)
	}
}

func TestValidateQuoteRequestRejections(t *testing.T) {
	now := time.Now().UTC()
	tests := []struct {
		name      string
		mutate    func(req *model.QuoteRequest)
		wantField string
	}{
		{
			name:      "missing asset",
			mutate:    func(req *model.QuoteRequest) { req.AssetID = "" },
			wantField: "AssetID",
		},
		{
			name:      "malformed asset id",
			mutate:    func(req *model.QuoteRequest) { req.AssetID = "not-an-oid" },
			wantField: "AssetID",
		},
		{
			name: "start well in the past",
			mutate: func(req *model.QuoteRequest) {
				req.StartTime = now.Add(-time.Hour)
				req.EndTime = now.Add(time.Hour)
			},
			wantField: "start_time",
		},
		{
			name: "end before start",
			mutate: func(req *model.QuoteRequest) {
				req.StartTime = now.Add(3 * time.Hour)
				req.EndTime = now.Add(time.Hour)
			},
			wantField: "EndTime",
		},
		{
			name: "window too long",
			mutate: func(req *model.QuoteRequest) {
				req.EndTime = req.StartTime.Add(31 * 24 * time.Hour)
			},
			wantField: "end_time",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validQuoteRequest()
			tt.mutate(req)

			err := newTestValidator().ValidateQuoteRequest(req)
			if err == nil {
				t.Fatal("expected validation failure")
			}
			if !strings.Contains(err.Error(), tt.wantField) {
				t.Errorf("error %q does not mention field %q", err.Error(), tt.wantField)
			}
		})
	}
}

func TestValidateCreateRequestRejectsNegativeQuote(t *testing.T) {
	now := time.Now().UTC()
	req := &model.CreateBookingRequest{
		AssetID:      "64f000000000000000000001",
		StartTime:    now.Add(time.Hour),
		EndTime:      now.Add(2 * time.Hour),
		QuotedAmount: -1,
	}
	if err := newTestValidator().ValidateCreateRequest(req); err == nil {
		t.Fatal("negative quoted amount should fail validation")
	}
}
