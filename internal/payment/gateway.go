package payment

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"

	"github.com/MikeMC777/enos-storefront/internal/clock"
)

var (
	ErrInvalidForm        = errors.New("please complete all required fields correctly")
	ErrGatewayUnavailable = errors.New("payment gateway temporarily unavailable")
)

// Confirmation is what the storefront keeps of a confirmed card. The card
// number itself is never retained.
type Confirmation struct {
	Token       string `json:"paymentToken"`
	Last4       string `json:"last4"`
	Fingerprint string `json:"fingerprint"`
}

type GatewayConfig struct {
	// Latency of the simulated gateway call.
	Latency time.Duration
	// FailureRate in [0,1] of calls that fail with ErrGatewayUnavailable.
	FailureRate float64
}

// Gateway simulates the card tokenisation service.
type Gateway struct {
	cfg       GatewayConfig
	validator *Validator
	clk       clock.Clock
	log       *zap.Logger
	random    func() float64
}

func NewGateway(cfg GatewayConfig, clk clock.Clock, log *zap.Logger) *Gateway {
	if clk == nil {
		clk = clock.Real{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Gateway{
		cfg:       cfg,
		validator: NewValidator(clk),
		clk:       clk,
		log:       log,
		random:    rand.Float64,
	}
}

// Confirm validates f, waits for the simulated gateway and returns a token of
// the form tok_<base36 millis>_<9 hex chars>.
func (g *Gateway) Confirm(ctx context.Context, f Form) (*Confirmation, error) {
	if err := g.validator.Validate(f); err != nil {
		g.log.Info("payment form rejected", zap.Strings("fields", FailedFields(err)))
		return nil, ErrInvalidForm
	}

	if g.cfg.Latency > 0 {
		t := time.NewTimer(g.cfg.Latency)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.C:
		}
	}
	if g.random() < g.cfg.FailureRate {
		g.log.Warn("payment gateway failure")
		return nil, ErrGatewayUnavailable
	}

	digits := strings.ReplaceAll(f.CardNumber, " ", "")
	now := g.clk.Now()
	token := "tok_" + strconv.FormatInt(now.UnixMilli(), 36) + "_" + tokenSuffix(digits, now)
	g.log.Info("payment token issued", zap.String("last4", digits[len(digits)-4:]))
	return &Confirmation{
		Token:       token,
		Last4:       digits[len(digits)-4:],
		Fingerprint: Fingerprint(digits),
	}, nil
}

// Fingerprint identifies a card number without revealing it.
func Fingerprint(number string) string {
	sum := blake2b.Sum256([]byte(strings.ReplaceAll(number, " ", "")))
	return hex.EncodeToString(sum[:16])
}

func tokenSuffix(digits string, now time.Time) string {
	var nonce [16]byte
	binary.BigEndian.PutUint64(nonce[:8], uint64(now.UnixNano()))
	binary.BigEndian.PutUint64(nonce[8:], rand.Uint64())
	h, _ := blake2b.New256(nonce[:])
	h.Write([]byte(digits))
	return hex.EncodeToString(h.Sum(nil))[:9]
}
