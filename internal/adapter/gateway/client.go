package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	domainErrors "github.com/polkiloo/boxoffice/internal/domain/errors"
	"github.com/polkiloo/boxoffice/internal/domain/model"
)

// Form field names shared by redirects and callbacks.
const (
	FieldMerchantID     = "merchant_id"
	FieldOrderRef       = "order_ref"
	FieldAttemptRef     = "attempt_ref"
	FieldTransactionRef = "transaction_ref"
	FieldAmount         = "amount"
	FieldStatus         = "status"
	FieldReturnURL      = "return_url"
	FieldNotifyURL      = "notify_url"
	FieldTimestamp      = "timestamp"
	FieldSignature      = "signature"
)

// Settings configures a hosted payment page integration.
type Settings struct {
	Endpoint   string
	MerchantID string
	Secret     string
	ReturnURL  string
	NotifyURL  string
}

// Client signs redirect payloads and verifies callbacks with a shared secret.
type Client struct {
	endpoint   string
	merchantID string
	secret     []byte
	returnURL  string
	notifyURL  string
	logger     *slog.Logger
	now        func() time.Time
}

// NewClient validates settings and constructs Client.
func NewClient(s Settings, logger *slog.Logger) (*Client, error) {
	parsed, err := url.Parse(s.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse gateway url: %w", err)
	}
	if !parsed.IsAbs() {
		return nil, fmt.Errorf("gateway url must be absolute")
	}
	if s.Secret == "" {
		return nil, fmt.Errorf("gateway secret must be provided")
	}
	return &Client{
		endpoint:   parsed.String(),
		merchantID: s.MerchantID,
		secret:     []byte(s.Secret),
		returnURL:  s.ReturnURL,
		notifyURL:  s.NotifyURL,
		logger:     logger,
		now:        time.Now,
	}, nil
}

// BuildRedirect returns the signed form the buyer's browser posts to the gateway.
func (c *Client) BuildRedirect(order *model.Order, attempt *model.PaymentAttempt) (model.Redirect, error) {
	if order == nil || attempt == nil {
		return model.Redirect{}, fmt.Errorf("order and attempt are required")
	}
	if order.Number == "" || attempt.Reference == "" {
		return model.Redirect{}, fmt.Errorf("order %d has no reference to pay", order.ID)
	}
	fields := map[string]string{
		FieldMerchantID: c.merchantID,
		FieldOrderRef:   order.Number,
		FieldAttemptRef: attempt.Reference,
		FieldAmount:     strconv.FormatInt(order.Total, 10),
		FieldTimestamp:  strconv.FormatInt(c.now().Unix(), 10),
	}
	if c.returnURL != "" {
		fields[FieldReturnURL] = c.returnURL
	}
	if c.notifyURL != "" {
		fields[FieldNotifyURL] = c.notifyURL
	}
	fields[FieldSignature] = c.Sign(fields)
	return model.Redirect{Endpoint: c.endpoint, Fields: fields}, nil
}

// ParseCallback verifies and decodes a form-encoded gateway notification.
func (c *Client) ParseCallback(raw []byte) (*model.Callback, error) {
	values, err := url.ParseQuery(string(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: malformed body", domainErrors.ErrInvalidCallback)
	}
	signature := strings.ToLower(values.Get(FieldSignature))
	if signature == "" {
		return nil, fmt.Errorf("%w: missing signature", domainErrors.ErrInvalidCallback)
	}

	fields := make(map[string]string, len(values))
	for k, v := range values {
		if k == FieldSignature || len(v) == 0 {
			continue
		}
		fields[k] = v[0]
	}
	if !hmac.Equal([]byte(c.Sign(fields)), []byte(signature)) {
		c.logger.Debug("callback signature mismatch", slog.String("order_ref", fields[FieldOrderRef]))
		return nil, fmt.Errorf("%w: signature mismatch", domainErrors.ErrInvalidCallback)
	}

	cb := &model.Callback{
		OrderNumber:    fields[FieldOrderRef],
		AttemptRef:     fields[FieldAttemptRef],
		TransactionRef: fields[FieldTransactionRef],
		Raw:            raw,
	}
	if cb.OrderNumber == "" || cb.AttemptRef == "" {
		return nil, fmt.Errorf("%w: missing order or attempt reference", domainErrors.ErrInvalidCallback)
	}
	switch model.PaymentOutcome(fields[FieldStatus]) {
	case model.PaymentSuccess:
		cb.Outcome = model.PaymentSuccess
	case model.PaymentFailure:
		cb.Outcome = model.PaymentFailure
	default:
		return nil, fmt.Errorf("%w: unknown status %q", domainErrors.ErrInvalidCallback, fields[FieldStatus])
	}
	cb.Amount, err = strconv.ParseInt(fields[FieldAmount], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid amount", domainErrors.ErrInvalidCallback)
	}
	return cb, nil
}

// Sign returns the hex HMAC-SHA256 of fields in canonical k=v& form with sorted keys.
// The signature field itself is never part of the input.
func (c *Client) Sign(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if k != FieldSignature {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(fields[k])
	}

	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(b.String()))
	return hex.EncodeToString(mac.Sum(nil))
}

// EncodeCallback signs fields and returns them form-encoded, the way the
// gateway posts notifications.
func (c *Client) EncodeCallback(fields map[string]string) []byte {
	values := url.Values{}
	for k, v := range fields {
		values.Set(k, v)
	}
	values.Set(FieldSignature, c.Sign(fields))
	return []byte(values.Encode())
}
