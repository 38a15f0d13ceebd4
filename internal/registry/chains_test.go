package registry

import "testing"

func TestParseChain(t *testing.T) {
	tests := []struct {
		input   string
		wantID  int64
		wantErr bool
	}{
		{input: "base", wantID: 8453},
		{input: "Base", wantID: 8453},
		{input: "zircuit", wantID: 48900},
		{input: "8453", wantID: 8453},
		{input: "999999", wantID: 999999},
		{input: "", wantErr: true},
		{input: "notachain", wantErr: true},
	}
	for _, tc := range tests {
		chain, err := ParseChain(tc.input)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ParseChain(%q): expected error", tc.input)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseChain(%q): %v", tc.input, err)
		}
		if chain.ChainID != tc.wantID {
			t.Fatalf("ParseChain(%q) = %d, want %d", tc.input, chain.ChainID, tc.wantID)
		}
	}
}

func TestResolveRPCURL(t *testing.T) {
	url, err := ResolveRPCURL("", 8453)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if url == "" {
		t.Fatal("expected a default endpoint for base")
	}

	url, err = ResolveRPCURL("https://override.example", 8453)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if url != "https://override.example" {
		t.Fatalf("url = %q, want the override to win", url)
	}

	if _, err := ResolveRPCURL("", 123456789); err == nil {
		t.Fatal("expected an error for an unconfigured chain")
	}
}

func TestFundingCandidatesAreOrderedAndComplete(t *testing.T) {
	if len(DefaultFundingCandidates) == 0 {
		t.Fatal("no funding candidates configured")
	}
	seen := map[int64]bool{}
	for _, c := range DefaultFundingCandidates {
		if seen[c.ChainID] {
			t.Fatalf("duplicate candidate chain %d", c.ChainID)
		}
		seen[c.ChainID] = true
		if c.Address == "" || c.Decimals <= 0 {
			t.Fatalf("incomplete candidate for chain %d", c.ChainID)
		}
		if _, err := ResolveRPCURL("", c.ChainID); err != nil {
			t.Fatalf("candidate chain %d has no default rpc", c.ChainID)
		}
	}
}
