package pubsub

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/golang-jwt/jwt"
	"github.com/sony/gobreaker"
	"go.uber.org/ratelimit"
	"golang.org/x/sync/errgroup"

	"github.com/escrow-network/escrowd/internal/core/ports"
	"github.com/escrow-network/escrowd/pkg/circuitbreaker"
)

// Outbound notifications are paced so that a burst of events does not
// hammer the subscribed endpoints.
const requestsPerSecond = 50

type service struct {
	store      store
	httpClient *http.Client
	cb         *gobreaker.CircuitBreaker
	limiter    ratelimit.Limiter
}

// NewService returns a webhook pubsub service persisting its subscriptions
// under the given data dir, or in memory if empty.
func NewService(dbDir string, logger badger.Logger) (ports.SecurePubSub, error) {
	store, err := newStore(dbDir, logger)
	if err != nil {
		return nil, err
	}

	return &service{
		store:      store,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		cb:         circuitbreaker.NewCircuitBreaker("webhooks"),
		limiter:    ratelimit.New(requestsPerSecond),
	}, nil
}

func (ws *service) Store() ports.PubSubStore {
	return ws.store
}

func (ws *service) Subscribe(topic, endpoint, secret string) (string, error) {
	sub, err := NewSubscription(topic, endpoint, secret)
	if err != nil {
		return "", err
	}

	if err := ws.store.addSubscription(sub); err != nil {
		return "", err
	}
	return sub.ID, nil
}

func (ws *service) SubscribeWithID(id, topic, endpoint, secret string) (string, error) {
	sub, err := NewSubscriptionWithID(id, topic, endpoint, secret)
	if err != nil {
		return "", err
	}

	if err := ws.store.addSubscription(sub); err != nil {
		return "", err
	}
	return sub.ID, nil
}

func (ws *service) Unsubscribe(_, id string) error {
	sub, err := ws.store.getSubscription(id)
	if err != nil {
		return err
	}
	if sub == nil {
		return ports.ErrSubscriptionNotFound
	}

	return ws.store.removeSubscription(id)
}

func (ws *service) ListSubscriptionsForTopic(topic string) []ports.Subscription {
	return ws.listSubscriptionsForTopic(topic).toPortable()
}

func (ws *service) Publish(topic string, message string) error {
	subs := ws.listSubscriptionsForTopic(topic)

	eg := &errgroup.Group{}
	for i := range subs {
		sub := subs[i]
		eg.Go(func() error { return ws.doRequest(sub, message) })
	}
	return eg.Wait()
}

func (ws *service) listSubscriptionsForTopic(topic string) subscriptions {
	subs := ws.store.listSubscriptions(topic)
	if topic != ports.AnyTopic && topic != ports.UnspecifiedTopic {
		subsForAnyTopic := ws.store.listSubscriptions(ports.AnyTopic)
		subs = append(subs, subsForAnyTopic...)
	}
	return subs
}

func (ws *service) doRequest(sub Subscription, payload string) error {
	ws.limiter.Take()

	_, err := ws.cb.Execute(func() (interface{}, error) {
		headers := map[string]string{
			"Content-Type": "application/json",
		}
		if sub.IsSecured() {
			token := jwt.New(jwt.SigningMethodHS256)
			secret := []byte(sub.Secret)
			tokenString, _ := token.SignedString(secret)
			headers["Authorization"] = fmt.Sprintf("Bearer %s", tokenString)
		}

		status, resp, err := ws.post(sub.Endpoint, payload, headers)
		if err != nil {
			return nil, err
		}
		if status != http.StatusOK {
			return nil, fmt.Errorf("%s", resp)
		}
		return nil, nil
	})

	return err
}

func (ws *service) post(
	url, body string, headers map[string]string,
) (int, string, error) {
	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(body))
	if err != nil {
		return 0, "", err
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := ws.httpClient.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, "", err
	}
	return resp.StatusCode, string(respBody), nil
}
