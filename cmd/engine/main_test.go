package main

import (
	"encoding/json"
	"io"
	"log"
	"testing"

	"github.com/nitinkhare/algoTradingAgent/internal/broker"
	"github.com/nitinkhare/algoTradingAgent/internal/config"
)

func testLogger() *log.Logger {
	return log.New(io.Discard, "[test] ", log.LstdFlags)
}

func TestLiveConfirmed(t *testing.T) {
	tests := []struct {
		name        string
		confirmFlag bool
		envSet      bool
		want        bool
	}{
		{"both present", true, true, true},
		{"missing flag", false, true, false},
		{"missing env", true, false, false},
		{"neither present", false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := liveConfirmed(tt.confirmFlag, tt.envSet); got != tt.want {
				t.Errorf("liveConfirmed(%v, %v) = %v, want %v", tt.confirmFlag, tt.envSet, got, tt.want)
			}
		})
	}
}

func TestBuildBroker_PaperMode(t *testing.T) {
	logger := testLogger()
	cfg := &config.Config{TradingMode: config.ModePaper, Capital: 100000}

	b, err := buildBroker(cfg, logger)
	if err != nil {
		t.Fatalf("buildBroker: %v", err)
	}
	if _, ok := b.(*broker.PaperBroker); !ok {
		t.Errorf("expected *broker.PaperBroker, got %T", b)
	}
}

func TestBuildBroker_LiveMode_MissingConfig(t *testing.T) {
	logger := testLogger()
	cfg := &config.Config{
		TradingMode:  config.ModeLive,
		ActiveBroker: "alpaca",
		BrokerConfig: map[string]json.RawMessage{},
	}

	if _, err := buildBroker(cfg, logger); err == nil {
		t.Error("expected error when broker_config is missing the active broker entry")
	}
}

func TestBuildQuoteProvider_MissingConfig(t *testing.T) {
	cfg := &config.Config{BrokerConfig: map[string]json.RawMessage{}}

	if _, err := buildQuoteProvider(cfg); err == nil {
		t.Error("expected error when broker_config has no alpaca entry")
	}
}

func TestBuildQuoteProvider_Valid(t *testing.T) {
	cfg := &config.Config{
		BrokerConfig: map[string]json.RawMessage{
			"alpaca": json.RawMessage(`{"key_id":"k","secret_key":"s"}`),
		},
	}

	qp, err := buildQuoteProvider(cfg)
	if err != nil {
		t.Fatalf("buildQuoteProvider: %v", err)
	}
	if qp == nil {
		t.Error("expected a non-nil quote provider")
	}
}

func TestBuildQuoteProvider_InvalidJSON(t *testing.T) {
	cfg := &config.Config{
		BrokerConfig: map[string]json.RawMessage{
			"alpaca": json.RawMessage(`{not valid json`),
		},
	}

	if _, err := buildQuoteProvider(cfg); err == nil {
		t.Error("expected error for malformed alpaca config")
	}
}
