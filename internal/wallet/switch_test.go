package wallet

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	clierr "github.com/tradetok/copytrade/internal/errors"
)

type scriptedWallet struct {
	mu             sync.Mutex
	active         int64
	switchErr      error
	switchRequests []int64
	applyAfter     time.Duration
	pending        int64
	requestedAt    time.Time
}

func (w *scriptedWallet) Address() common.Address { return common.Address{} }

func (w *scriptedWallet) ActiveChainID(ctx context.Context) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pending != 0 && time.Since(w.requestedAt) >= w.applyAfter {
		w.active = w.pending
		w.pending = 0
	}
	return w.active, nil
}

func (w *scriptedWallet) RequestSwitch(ctx context.Context, chainID int64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.switchRequests = append(w.switchRequests, chainID)
	if w.switchErr != nil {
		return w.switchErr
	}
	if w.applyAfter == 0 {
		w.active = chainID
		return nil
	}
	w.pending = chainID
	w.requestedAt = time.Now()
	return nil
}

func (w *scriptedWallet) SendTransaction(ctx context.Context, chainID int64, req TxRequest) (common.Hash, error) {
	return common.Hash{}, nil
}

func TestEnsureChainNoOpWhenAlreadyMatching(t *testing.T) {
	w := &scriptedWallet{active: 8453}
	controller := NewSwitchController(w, time.Second, 10*time.Millisecond)

	if err := controller.EnsureChain(context.Background(), 8453); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(w.switchRequests) != 0 {
		t.Fatalf("requested %v, want no switch request when already on chain", w.switchRequests)
	}
}

func TestEnsureChainObservesLateSwitch(t *testing.T) {
	w := &scriptedWallet{active: 1, applyAfter: 60 * time.Millisecond}
	controller := NewSwitchController(w, time.Second, 10*time.Millisecond)

	if err := controller.EnsureChain(context.Background(), 8453); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	active, _ := w.ActiveChainID(context.Background())
	if active != 8453 {
		t.Fatalf("active chain = %d, want 8453", active)
	}
}

func TestEnsureChainDeclined(t *testing.T) {
	w := &scriptedWallet{active: 1, switchErr: clierr.New(clierr.CodeSwitch, "user declined")}
	controller := NewSwitchController(w, time.Second, 10*time.Millisecond)

	err := controller.EnsureChain(context.Background(), 8453)
	if clierr.CodeOf(err) != clierr.CodeSwitch {
		t.Fatalf("error code = %d; err=%v", clierr.CodeOf(err), err)
	}
}

func TestEnsureChainAmbiguousTimeout(t *testing.T) {
	// The wallet accepts the request but never reaches the chain.
	w := &scriptedWallet{active: 1, applyAfter: time.Hour}
	controller := NewSwitchController(w, 120*time.Millisecond, 10*time.Millisecond)

	err := controller.EnsureChain(context.Background(), 8453)
	if clierr.CodeOf(err) != clierr.CodeSwitchTimeout {
		t.Fatalf("error code = %d, want the ambiguous timeout surfaced distinctly; err=%v", clierr.CodeOf(err), err)
	}
	typed, _ := clierr.As(err)
	if typed == nil || typed.Message == "" {
		t.Fatal("timeout must carry a manual-fallback instruction")
	}
}
