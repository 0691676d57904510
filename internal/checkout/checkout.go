// Package checkout implements the mock e-wallet payment flow that turns a
// registration draft into a stored registration.
//
// The flow keeps its state in transient keys of the same namespace as the
// collections: the draft awaiting payment, the chosen payment method, the
// exact amount to transfer and, after success, the completed registration.
// The completed registration is readable for a few seconds only.
package checkout

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pfrederiksen/devent/internal/event"
	"github.com/pfrederiksen/devent/internal/kv"
	"github.com/pfrederiksen/devent/internal/logger"
	"github.com/pfrederiksen/devent/internal/storage"
	"github.com/pfrederiksen/devent/internal/validate"
)

// CompletedTTL is how long a completed registration stays readable.
const CompletedTTL = 5 * time.Second

var (
	ErrNoPendingRegistration   = errors.New("no registration awaiting payment")
	ErrNoPaymentMethod         = errors.New("no payment method selected")
	ErrInvalidPaymentMethod    = errors.New("unknown payment method")
	ErrNoCompletedRegistration = errors.New("no completed registration")
	ErrPaymentRequired         = errors.New("registration is not free")
	ErrFreeRegistration        = errors.New("registration is free, complete it without payment")
)

// Method is an e-wallet a registration can be paid with.
type Method string

const (
	Dana      Method = "dana"
	GoPay     Method = "gopay"
	ShopeePay Method = "shopeepay"
)

// Methods lists the accepted payment methods.
var Methods = []Method{Dana, GoPay, ShopeePay}

var methodNames = map[Method]string{
	Dana:      "DANA",
	GoPay:     "GoPay",
	ShopeePay: "ShopeePay",
}

// ParseMethod converts user input to a Method.
func ParseMethod(s string) (Method, error) {
	m := Method(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := methodNames[m]; !ok {
		return "", fmt.Errorf("%w: %q (choose dana, gopay or shopeepay)", ErrInvalidPaymentMethod, s)
	}
	return m, nil
}

// DisplayName returns the wallet's brand name.
func (m Method) DisplayName() string {
	if name, ok := methodNames[m]; ok {
		return name
	}
	return "E-Wallet"
}

// Checkout drives the payment flow.
type Checkout struct {
	manager *storage.Manager
	store   kv.Store
	log     *logger.Logger
	now     func() time.Time
}

// Option configures a Checkout.
type Option func(*Checkout)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Checkout) { c.now = now }
}

// WithLogger sets the logger.
func WithLogger(log *logger.Logger) Option {
	return func(c *Checkout) { c.log = log }
}

// New creates a Checkout that stores completed registrations through manager.
func New(manager *storage.Manager, opts ...Option) *Checkout {
	c := &Checkout{
		manager: manager,
		store:   manager.Store(),
		log:     logger.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start validates draft and stores it as the registration awaiting payment.
// Any method, amount or completed registration left over from an earlier
// checkout is discarded.
func (c *Checkout) Start(draft event.Registration) (*event.Registration, error) {
	if err := validate.Registration(&draft); err != nil {
		return nil, err
	}
	if _, err := c.manager.EventByID(draft.EventID); err != nil {
		return nil, fmt.Errorf("starting checkout: %w", err)
	}

	if err := c.clear(kv.KeySelectedPayment, kv.KeyExactPaymentAmount, kv.KeyCompletedRegistration); err != nil {
		return nil, err
	}
	if err := c.manager.PutRegistrationSnapshot(kv.KeyPendingRegistration, draft); err != nil {
		return nil, fmt.Errorf("starting checkout: %w", err)
	}
	return &draft, nil
}

// Pending returns the registration awaiting payment.
func (c *Checkout) Pending() (*event.Registration, error) {
	r, found, err := c.manager.RegistrationSnapshot(kv.KeyPendingRegistration)
	if err != nil {
		c.log.Warn("Pending registration unreadable", logger.Fields{"error": err.Error()})
		return nil, ErrNoPendingRegistration
	}
	if !found {
		return nil, ErrNoPendingRegistration
	}
	return r, nil
}

// payable returns the pending registration if it has something to pay.
func (c *Checkout) payable() (*event.Registration, error) {
	pending, err := c.Pending()
	if err != nil {
		return nil, err
	}
	if pending.IsFree() {
		return nil, ErrFreeRegistration
	}
	return pending, nil
}

// SelectMethod records the e-wallet the pending registration is paid with.
func (c *Checkout) SelectMethod(method string) (Method, error) {
	if _, err := c.payable(); err != nil {
		return "", err
	}
	m, err := ParseMethod(method)
	if err != nil {
		return "", err
	}
	if err := c.store.Set(kv.KeySelectedPayment, string(m)); err != nil {
		return "", fmt.Errorf("saving payment method: %w", err)
	}
	return m, nil
}

// SelectedMethod returns the chosen payment method.
func (c *Checkout) SelectedMethod() (Method, error) {
	raw, ok, err := c.store.Get(kv.KeySelectedPayment)
	if err != nil || !ok {
		return "", ErrNoPaymentMethod
	}
	m, err := ParseMethod(raw)
	if err != nil {
		return "", ErrNoPaymentMethod
	}
	return m, nil
}

// ExactAmount returns the amount to transfer: the total price plus the last
// two digits of the current millisecond timestamp, so a transfer can be
// matched to its registration. The amount is computed once per checkout.
func (c *Checkout) ExactAmount() (event.Amount, error) {
	pending, err := c.payable()
	if err != nil {
		return 0, err
	}
	if _, err := c.SelectedMethod(); err != nil {
		return 0, err
	}

	if raw, ok, err := c.store.Get(kv.KeyExactPaymentAmount); err == nil && ok {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return event.Amount(n), nil
		}
	}

	amount := pending.TotalPrice + event.Amount(c.now().UnixMilli()%100)
	if err := c.store.Set(kv.KeyExactPaymentAmount, strconv.FormatInt(int64(amount), 10)); err != nil {
		return 0, fmt.Errorf("saving payment amount: %w", err)
	}
	return amount, nil
}

// Confirm records the payment and stores the registration. A duplicate
// registration leaves the checkout state untouched.
func (c *Checkout) Confirm() (*event.Registration, error) {
	pending, err := c.payable()
	if err != nil {
		return nil, err
	}
	method, err := c.SelectedMethod()
	if err != nil {
		return nil, err
	}
	amount, err := c.ExactAmount()
	if err != nil {
		return nil, err
	}

	paidAt := c.now()
	pending.PaymentMethod = string(method)
	pending.PaymentAmount = amount
	pending.PaymentDate = &paidAt
	pending.PaymentStatus = event.PaymentCompleted

	return c.complete(*pending)
}

// CompleteFree stores a pending registration that costs nothing, without a
// payment method.
func (c *Checkout) CompleteFree() (*event.Registration, error) {
	pending, err := c.Pending()
	if err != nil {
		return nil, err
	}
	if !pending.IsFree() {
		return nil, fmt.Errorf("%w: total is %s", ErrPaymentRequired, pending.TotalPrice.Format())
	}

	pending.PaymentStatus = event.PaymentFree
	return c.complete(*pending)
}

func (c *Checkout) complete(r event.Registration) (*event.Registration, error) {
	stored, err := c.manager.AddRegistration(r)
	if err != nil {
		return nil, fmt.Errorf("completing registration: %w", err)
	}

	if err := c.manager.PutRegistrationSnapshot(kv.KeyCompletedRegistration, *stored); err != nil {
		c.log.Warn("Saving completed registration failed", logger.Fields{
			"registration_id": stored.RegistrationID,
			"error":           err.Error(),
		})
	}
	if err := c.clear(kv.KeyPendingRegistration, kv.KeySelectedPayment, kv.KeyExactPaymentAmount); err != nil {
		c.log.Warn("Clearing checkout state failed", logger.Fields{"error": err.Error()})
	}

	c.log.Info("Checkout completed", logger.Fields{
		"registration_id": stored.RegistrationID,
		"status":          stored.PaymentStatus,
	})
	return stored, nil
}

// Completed returns the most recently completed registration. Once it is
// older than CompletedTTL it is removed and ErrNoCompletedRegistration is
// returned.
func (c *Checkout) Completed() (*event.Registration, error) {
	r, found, err := c.manager.RegistrationSnapshot(kv.KeyCompletedRegistration)
	if err != nil || !found {
		return nil, ErrNoCompletedRegistration
	}

	if c.now().Sub(r.RegistrationDate) > CompletedTTL {
		if err := c.store.Remove(kv.KeyCompletedRegistration); err != nil {
			c.log.Warn("Expiring completed registration failed", logger.Fields{"error": err.Error()})
		}
		return nil, ErrNoCompletedRegistration
	}
	return r, nil
}

// Cancel discards the pending registration, method and amount.
func (c *Checkout) Cancel() error {
	return c.clear(kv.KeyPendingRegistration, kv.KeySelectedPayment, kv.KeyExactPaymentAmount)
}

func (c *Checkout) clear(keys ...string) error {
	for _, key := range keys {
		if err := c.store.Remove(key); err != nil {
			return fmt.Errorf("removing %s: %w", key, err)
		}
	}
	return nil
}
