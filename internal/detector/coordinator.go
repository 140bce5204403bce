// Package detector wires the notification stream to transaction analysis,
// range matching, scrutiny and alert delivery. Each notification is handled
// in its own goroutine so a slow RPC lookup never stalls the stream reader.
package detector

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fele-scratch/CEX-WALLET-TRACKER/internal/alerts"
	"github.com/fele-scratch/CEX-WALLET-TRACKER/internal/analyzer"
	"github.com/fele-scratch/CEX-WALLET-TRACKER/internal/domain"
	"github.com/fele-scratch/CEX-WALLET-TRACKER/internal/observability"
	"github.com/fele-scratch/CEX-WALLET-TRACKER/internal/ranges"
	"github.com/fele-scratch/CEX-WALLET-TRACKER/internal/scrutiny"
	"github.com/fele-scratch/CEX-WALLET-TRACKER/internal/solana"
	"github.com/fele-scratch/CEX-WALLET-TRACKER/internal/storage"
	"github.com/fele-scratch/CEX-WALLET-TRACKER/internal/stream"
)

// Options configures a Coordinator. RPC, Wallets, Validator and Alerts are
// required; Store is optional and nil disables persistence.
type Options struct {
	RPC       solana.RPCClient
	Wallets   []domain.WalletWatch
	Validator *scrutiny.Validator
	Alerts    alerts.Sender
	Store     storage.EventStore

	// DedupSignatures skips notifications whose signature was already
	// handled in this process. Off by default: logsSubscribe at confirmed
	// commitment delivers each signature once per subscription, and
	// re-processing after a reconnect is usually the desired behavior.
	DedupSignatures bool

	Log     *logrus.Logger
	Metrics *observability.Metrics
}

// Coordinator consumes log notifications and emits detection events. One
// notification can produce independent events for several watched wallets
// when a single transaction moves funds out of more than one of them.
type Coordinator struct {
	rpc       solana.RPCClient
	wallets   []domain.WalletWatch
	validator *scrutiny.Validator
	alerts    alerts.Sender
	store     storage.EventStore
	log       *logrus.Logger
	metrics   *observability.Metrics

	dedup     bool
	mu        sync.Mutex
	seen      map[string]struct{}
	seenOrder []string

	wg sync.WaitGroup
}

// New creates a Coordinator.
func New(opts Options) *Coordinator {
	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = observability.DefaultMetrics
	}

	return &Coordinator{
		rpc:       opts.RPC,
		wallets:   opts.Wallets,
		validator: opts.Validator,
		alerts:    opts.Alerts,
		store:     opts.Store,
		log:       log,
		metrics:   metrics,
		dedup:     opts.DedupSignatures,
		seen:      make(map[string]struct{}),
	}
}

// Run consumes notifications until the channel closes or ctx is cancelled,
// then waits for in-flight handlers to finish.
func (c *Coordinator) Run(ctx context.Context, notifs <-chan stream.Notification) {
	defer c.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return
		case notif, ok := <-notifs:
			if !ok {
				return
			}
			c.metrics.NotificationsReceived.Inc()
			c.wg.Add(1)
			go func() {
				defer c.wg.Done()
				c.handle(ctx, notif)
			}()
		}
	}
}

func (c *Coordinator) handle(ctx context.Context, notif stream.Notification) {
	start := time.Now()
	defer func() {
		c.metrics.NotificationHandleTime.Observe(time.Since(start).Seconds())
	}()

	// Failed transactions move no lamports besides the fee.
	if notif.Err != nil {
		c.metrics.TransactionsSkipped.WithLabelValues("tx_failed").Inc()
		return
	}

	if c.dedup && !c.markSeen(notif.Signature) {
		c.metrics.TransactionsSkipped.WithLabelValues("duplicate_signature").Inc()
		return
	}

	tx, err := c.rpc.GetTransaction(ctx, notif.Signature)
	if err != nil {
		c.metrics.TransactionsSkipped.WithLabelValues("rpc_error").Inc()
		c.log.WithFields(logrus.Fields{
			"signature": notif.Signature,
			"error":     err,
		}).Warn("[detector] transaction fetch failed")
		return
	}
	if tx == nil {
		c.metrics.TransactionsSkipped.WithLabelValues("not_found").Inc()
		c.log.WithField("signature", notif.Signature).
			Debug("[detector] transaction not found")
		return
	}
	c.metrics.TransactionsFetched.Inc()

	analysis := analyzer.Analyze(tx)
	if analysis == nil {
		c.metrics.TransactionsSkipped.WithLabelValues("no_metadata").Inc()
		return
	}

	for _, w := range c.wallets {
		c.evaluateWallet(ctx, w, tx, analysis)
	}
}

// evaluateWallet checks one watched wallet against an analyzed transaction
// and emits at most one detection event for it.
func (c *Coordinator) evaluateWallet(ctx context.Context, w domain.WalletWatch, tx *solana.Transaction, analysis *domain.TransactionAnalysis) {
	out := analysis.OutflowSOL(w.Address)
	if out <= 0 {
		return
	}

	r, ok := ranges.FirstMatch(out, w.Ranges)
	if !ok {
		return
	}

	recipient, found := analysis.Recipient(w.Address, out)
	if !found {
		// No account received the outgoing amount, e.g. a split payment.
		// A detection without a resolved recipient is not emitted.
		c.metrics.TransactionsSkipped.WithLabelValues("recipient_unresolved").Inc()
		c.log.WithFields(logrus.Fields{
			"wallet":    w.Label,
			"signature": tx.Signature,
			"sol":       out,
		}).Warn("[detector] outflow matched but no recipient resolved")
		return
	}

	event := &domain.DetectionEvent{
		Timestamp:        eventTime(tx),
		Signature:        tx.Signature,
		WalletLabel:      w.Label,
		WalletAddress:    w.Address,
		RecipientAddress: recipient,
		OutgoingSOL:      out,
		MatchedRange:     r,
		Scrutiny:         c.validator.Evaluate(ctx, recipient, w.Address, w.Label, tx.Signature),
	}

	c.metrics.DetectionsTotal.WithLabelValues(string(event.Scrutiny.Condition)).Inc()

	c.log.WithFields(logrus.Fields{
		"wallet":    w.Label,
		"signature": tx.Signature,
		"sol":       out,
		"range":     [2]float64{r.Min, r.Max},
		"condition": event.Scrutiny.Condition,
	}).Info("[detector] outflow matched")

	if err := c.alerts.Send(ctx, event); err != nil {
		c.log.WithFields(logrus.Fields{
			"signature": tx.Signature,
			"error":     err,
		}).Error("[detector] alert delivery failed")
	} else {
		c.metrics.AlertsSent.Inc()
	}

	c.persist(ctx, event)
}

func (c *Coordinator) persist(ctx context.Context, event *domain.DetectionEvent) {
	if c.store == nil {
		return
	}

	err := c.store.Insert(ctx, event)
	switch {
	case err == nil:
		c.metrics.EventsStored.Inc()
	case errors.Is(err, storage.ErrDuplicateKey):
		c.metrics.DuplicatesSkipped.Inc()
		c.log.WithFields(logrus.Fields{
			"signature": event.Signature,
			"wallet":    event.WalletAddress,
		}).Debug("[detector] event already stored")
	default:
		c.metrics.StorageErrors.WithLabelValues("insert").Inc()
		c.log.WithFields(logrus.Fields{
			"signature": event.Signature,
			"error":     err,
		}).Error("[detector] event store insert failed")
	}
}

// dedupCapacity bounds the seen-signature set. Confirmed-commitment
// signatures repeat within seconds of each other when they repeat at all,
// so a window this size is far wider than any realistic duplicate gap.
const dedupCapacity = 8192

// markSeen records a signature, returning false if it was already recorded.
// The set is bounded: once dedupCapacity is reached, the oldest signature
// is evicted per insert.
func (c *Coordinator) markSeen(sig string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.seen[sig]; ok {
		return false
	}
	if len(c.seenOrder) >= dedupCapacity {
		oldest := c.seenOrder[0]
		c.seenOrder = c.seenOrder[1:]
		delete(c.seen, oldest)
	}
	c.seen[sig] = struct{}{}
	c.seenOrder = append(c.seenOrder, sig)
	return true
}

func eventTime(tx *solana.Transaction) time.Time {
	if tx.BlockTime > 0 {
		return time.Unix(tx.BlockTime, 0).UTC()
	}
	return time.Now().UTC()
}
