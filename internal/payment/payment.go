// Package payment drives the subject-unlock flow: price lookup, checkout
// initiation, and a loopback listener for the hosted gateway's return
// redirect. The gateway page itself stays an external collaborator.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/quizbd/quizbd-go/internal/api"
	"github.com/quizbd/quizbd-go/internal/domain"
	"github.com/quizbd/quizbd-go/internal/event"
)

// fallbackPrice is shown when the price lookup fails; checkout itself
// still settles against the server-side price table.
var fallbackPrice = decimal.NewFromInt(100)

type Config struct {
	API        *api.Client
	EventBus   *event.Bus
	ListenAddr string
}

type Service struct {
	api  *api.Client
	eb   *event.Bus
	addr string
}

func NewService(c Config) *Service {
	return &Service{
		api:  c.API,
		eb:   c.EventBus,
		addr: c.ListenAddr,
	}
}

// Checkout is one in-flight unlock purchase.
type Checkout struct {
	Subject    string
	ClassLevel int
	Price      decimal.Decimal
	GatewayURL string

	svc *Service
}

// Begin prices the subject and initiates checkout. The caller sends the
// user to GatewayURL, then calls Await for the outcome.
func (s *Service) Begin(ctx context.Context, classLevel int, subject string) (*Checkout, error) {
	price, err := s.api.GetPrice(ctx, classLevel, subject)
	if err != nil {
		slog.WarnContext(ctx, "payment: price lookup failed, using fallback", "error", err)
		price = fallbackPrice
	}

	gatewayURL, err := s.api.InitiatePayment(ctx, api.InitiatePaymentRequest{
		Subject:    subject,
		ClassLevel: classLevel,
	})
	if err != nil {
		return nil, fmt.Errorf("initiate payment: %w", err)
	}

	return &Checkout{
		Subject:    subject,
		ClassLevel: classLevel,
		Price:      price,
		GatewayURL: gatewayURL,
		svc:        s,
	}, nil
}

// Await serves the loopback return endpoints until the gateway redirects
// back with a final outcome or ctx expires. It reports whether the
// payment succeeded.
func (c *Checkout) Await(ctx context.Context) (bool, error) {
	outcome := make(chan bool, 1)

	gin.SetMode(gin.ReleaseMode)
	e := gin.New()
	e.Use(gin.Recovery())

	settle := func(ok bool) gin.HandlerFunc {
		return func(gc *gin.Context) {
			select {
			case outcome <- ok:
			default: // late duplicate redirect, first outcome wins
			}

			if ok {
				gc.String(http.StatusOK, "Payment successful. Subject unlocked, you can close this tab.")
				return
			}
			gc.String(http.StatusOK, "Payment failed or cancelled. You can close this tab and retry.")
		}
	}

	e.GET("/payment/success", settle(true))
	e.GET("/payment/fail", settle(false))

	srv := &http.Server{
		Addr:              c.svc.addr,
		Handler:           e,
		ReadHeaderTimeout: 60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	var (
		ok  bool
		err error
	)

	select {
	case ok = <-outcome:
	case err = <-errc:
		err = fmt.Errorf("payment: loopback listener: %w", err)
	case <-ctx.Done():
		err = fmt.Errorf("payment: checkout not completed: %w", ctx.Err())
	}

	sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if serr := srv.Shutdown(sctx); serr != nil {
		slog.ErrorContext(sctx, "payment: shutdown listener failed", "error", serr)
	}

	if err != nil {
		return false, err
	}

	if c.svc.eb != nil {
		c.svc.eb.Publish(ctx, domain.EventPaymentSettled{
			Subject:    c.Subject,
			ClassLevel: c.ClassLevel,
			Succeeded:  ok,
		})
	}

	return ok, nil
}
