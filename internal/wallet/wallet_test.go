package wallet

import (
	"bytes"
	"testing"

	clierr "github.com/tradetok/copytrade/internal/errors"
)

func TestDecodePayload(t *testing.T) {
	tests := []struct {
		name      string
		to        string
		data      string
		value     string
		wantValue string
		wantData  []byte
		wantErr   bool
	}{
		{
			name:      "hex data and decimal value",
			to:        "0x5555555555555555555555555555555555555555",
			data:      "0xdeadbeef",
			value:     "1000",
			wantValue: "1000",
			wantData:  []byte{0xde, 0xad, 0xbe, 0xef},
		},
		{
			name:      "hex value",
			to:        "0x5555555555555555555555555555555555555555",
			data:      "0x",
			value:     "0x2710",
			wantValue: "10000",
		},
		{
			name:      "empty value means zero",
			to:        "0x5555555555555555555555555555555555555555",
			data:      "",
			value:     "",
			wantValue: "0",
		},
		{
			name:    "invalid target address",
			to:      "not-an-address",
			wantErr: true,
		},
		{
			name:    "malformed calldata",
			to:      "0x5555555555555555555555555555555555555555",
			data:    "0xzz",
			wantErr: true,
		},
		{
			name:    "negative value",
			to:      "0x5555555555555555555555555555555555555555",
			value:   "-1",
			wantErr: true,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req, err := DecodePayload(tc.to, tc.data, tc.value)
			if tc.wantErr {
				if clierr.CodeOf(err) != clierr.CodeExecution {
					t.Fatalf("error code = %d, want execution; err=%v", clierr.CodeOf(err), err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if req.Value.String() != tc.wantValue {
				t.Fatalf("value = %s, want %s", req.Value.String(), tc.wantValue)
			}
			if tc.wantData != nil && !bytes.Equal(req.Data, tc.wantData) {
				t.Fatalf("data = %x, want %x", req.Data, tc.wantData)
			}
		})
	}
}
