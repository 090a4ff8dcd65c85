package httpinterface

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/require"

	"github.com/escrow-network/escrowd/internal/core/application/dispute"
	"github.com/escrow-network/escrowd/internal/core/application/guard"
	"github.com/escrow-network/escrowd/internal/core/application/operator"
	"github.com/escrow-network/escrowd/internal/core/application/order"
	apppubsub "github.com/escrow-network/escrowd/internal/core/application/pubsub"
	"github.com/escrow-network/escrowd/internal/core/application/trade"
	"github.com/escrow-network/escrowd/internal/infrastructure/ledger"
	pubsubstore "github.com/escrow-network/escrowd/internal/infrastructure/pubsub"
	"github.com/escrow-network/escrowd/internal/infrastructure/storage/db/inmemory"
	"github.com/escrow-network/escrowd/pkg/orderauth"
)

var (
	ctx = context.Background()

	adminAddr    = common.HexToAddress("0x66f820a414680B5bcda5eECA5dea238543F42054")
	vaultAddr    = common.HexToAddress("0xfB695Bf0d1F2d11b881f5F82C2Db1fD27e30E18B")
	makerAddr    = common.HexToAddress("0x90F8bf6A479f320ead074411a4B0e7944Ea8c9C1")
	takerAddr    = common.HexToAddress("0xFFcf8FDEE72ac11b5c542428B35EEF5769C409f0")
	strangerAddr = common.HexToAddress("0x22d491Bde2303f2f43325b2108D26f1eAbA1e32b")
)

const (
	testAsset      = "USDT"
	testSecret     = "test-admin-secret"
	agreementHash  = "bafe71f0b072a87bb84b4707a8e99f4cbbcdfbc5b9e3a1b373a764fa33cf44e1"
	initialBalance = uint64(100000)
)

func TestTradeEndpoints(t *testing.T) {
	rig := newTestRig(t)

	rec := rig.do(t, http.MethodPost, "/v1/trades", "", newTradeBody())
	require.Equal(t, http.StatusCreated, rec.Code)
	var created idResponse
	decodeBody(t, rec, &created)
	require.Equal(t, uint64(1), created.Id)

	rec = rig.do(
		t, http.MethodPost, "/v1/trades/1/fund", "",
		callerRequest{Caller: makerAddr.Hex()},
	)
	require.Equal(t, http.StatusOK, rec.Code)
	var funded amountResponse
	decodeBody(t, rec, &funded)
	require.Equal(t, uint64(5000), funded.Amount)

	rec = rig.do(
		t, http.MethodPost, "/v1/trades/1/fund", "",
		callerRequest{Caller: takerAddr.Hex()},
	)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &funded)
	require.Equal(t, uint64(15000), funded.Amount)

	for _, party := range []common.Address{makerAddr, takerAddr} {
		rec := rig.do(
			t, http.MethodPost, "/v1/trades/1/confirm", "",
			callerRequest{Caller: party.Hex()},
		)
		require.Equal(t, http.StatusNoContent, rec.Code)
	}

	rec = rig.do(t, http.MethodGet, "/v1/trades/1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var view tradeView
	decodeBody(t, rec, &view)
	require.Equal(t, "settled", view.Status)
	require.Equal(t, makerAddr.Hex(), view.Maker)
	require.Equal(t, takerAddr.Hex(), view.Taker)
	require.Equal(t, "maker_sells", view.Direction)
	require.Equal(t, uint64(20000), view.TotalEscrow)
	require.True(t, view.MakerConfirmed)
	require.True(t, view.TakerConfirmed)

	rec = rig.do(t, http.MethodGet, "/v1/trades", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var views []tradeView
	decodeBody(t, rec, &views)
	require.Len(t, views, 1)

	rec = rig.do(
		t, http.MethodGet, "/v1/trades?party="+strangerAddr.Hex(), "", nil,
	)
	require.Equal(t, http.StatusOK, rec.Code)
	views = nil
	decodeBody(t, rec, &views)
	require.Empty(t, views)
}

func TestCreateFundedTradeEndpoint(t *testing.T) {
	rig := newTestRig(t)

	body := newTradeBody()
	body["caller"] = takerAddr.Hex()
	rec := rig.do(t, http.MethodPost, "/v1/trades/funded", "", body)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created idResponse
	decodeBody(t, rec, &created)
	require.Equal(t, uint64(1), created.Id)

	rec = rig.do(t, http.MethodGet, "/v1/trades/1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var view tradeView
	decodeBody(t, rec, &view)
	require.Equal(t, "open", view.Status)
	require.True(t, view.TakerFunded)
	require.False(t, view.MakerFunded)

	// only the creator of the trade can create-and-fund, the maker funds its
	// own leg with the plain fund endpoint afterwards.
	body["caller"] = makerAddr.Hex()
	rec = rig.do(t, http.MethodPost, "/v1/trades/funded", "", body)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestFailingTradeEndpoints(t *testing.T) {
	rig := newTestRig(t)

	rec := rig.do(t, http.MethodPost, "/v1/trades", "", newTradeBody())
	require.Equal(t, http.StatusCreated, rec.Code)

	badMaker := newTradeBody()
	badMaker["maker"] = "not-an-address"
	badDirection := newTradeBody()
	badDirection["direction"] = "sideways"
	zeroMaker := newTradeBody()
	zeroMaker["maker"] = common.Address{}.Hex()

	tests := []struct {
		name           string
		method         string
		target         string
		body           interface{}
		expectedStatus int
	}{
		{
			"malformed body", http.MethodPost, "/v1/trades",
			"not a trade", http.StatusBadRequest,
		},
		{
			"invalid maker address", http.MethodPost, "/v1/trades",
			badMaker, http.StatusBadRequest,
		},
		{
			"unknown direction", http.MethodPost, "/v1/trades",
			badDirection, http.StatusBadRequest,
		},
		{
			"missing maker", http.MethodPost, "/v1/trades",
			zeroMaker, http.StatusBadRequest,
		},
		{
			"invalid trade id", http.MethodGet, "/v1/trades/abc",
			nil, http.StatusBadRequest,
		},
		{
			"unknown trade", http.MethodGet, "/v1/trades/42",
			nil, http.StatusNotFound,
		},
		{
			"fund unknown trade", http.MethodPost, "/v1/trades/42/fund",
			callerRequest{Caller: makerAddr.Hex()}, http.StatusNotFound,
		},
		{
			"fund by stranger", http.MethodPost, "/v1/trades/1/fund",
			callerRequest{Caller: strangerAddr.Hex()}, http.StatusForbidden,
		},
		{
			"confirm before funding", http.MethodPost, "/v1/trades/1/confirm",
			callerRequest{Caller: makerAddr.Hex()}, http.StatusConflict,
		},
		{
			"cancel before deadline", http.MethodPost, "/v1/trades/1/cancel",
			nil, http.StatusConflict,
		},
		{
			"refund before cancellation", http.MethodPost, "/v1/trades/1/refund",
			callerRequest{Caller: makerAddr.Hex()}, http.StatusConflict,
		},
		{
			"dispute before funding", http.MethodPost, "/v1/trades/1/dispute",
			callerRequest{Caller: makerAddr.Hex()}, http.StatusConflict,
		},
		{
			"invalid party filter", http.MethodGet, "/v1/trades?party=zzz",
			nil, http.StatusBadRequest,
		},
	}

	for i := range tests {
		tt := tests[i]

		t.Run(tt.name, func(t *testing.T) {
			rec := rig.do(t, tt.method, tt.target, "", tt.body)
			require.Equal(t, tt.expectedStatus, rec.Code)

			var body errorBody
			decodeBody(t, rec, &body)
			require.NotEmpty(t, body.Error)
		})
	}

	// funding the same leg twice maps the double-action to a conflict.
	rec = rig.do(
		t, http.MethodPost, "/v1/trades/1/fund", "",
		callerRequest{Caller: makerAddr.Hex()},
	)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = rig.do(
		t, http.MethodPost, "/v1/trades/1/fund", "",
		callerRequest{Caller: makerAddr.Hex()},
	)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestOrderEndpoints(t *testing.T) {
	rig := newTestRig(t)

	makerKey, orderMaker := newOrderMaker(t)
	rig.ledger.Credit(testAsset, orderMaker, initialBalance)
	rig.ledger.Approve(testAsset, orderMaker, initialBalance)

	payload := newOrderPayload(orderMaker)
	signature := rig.signOrder(t, makerKey, payload)

	rec := rig.do(t, http.MethodPost, "/v1/orders/fill", "", fillOrderRequest{
		Order:      payload,
		FillAmount: 60,
		Signature:  signature,
		Caller:     takerAddr.Hex(),
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var filled tradeIdResponse
	decodeBody(t, rec, &filled)
	require.Equal(t, uint64(1), filled.TradeId)

	rec = rig.do(
		t, http.MethodPost, "/v1/orders/remaining", "",
		remainingQuantityRequest{Order: payload, Signature: signature},
	)
	require.Equal(t, http.StatusOK, rec.Code)
	var remaining remainingResponse
	decodeBody(t, rec, &remaining)
	require.Equal(t, uint64(40), remaining.Remaining)

	rec = rig.do(t, http.MethodGet, "/v1/trades/1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var view tradeView
	decodeBody(t, rec, &view)
	require.Equal(t, "funded", view.Status)
	require.Equal(t, orderMaker.Hex(), view.Maker)
	require.Equal(t, takerAddr.Hex(), view.Taker)

	rec = rig.do(t, http.MethodPost, "/v1/orders/cancel", "", cancelOrderRequest{
		Caller: orderMaker.Hex(),
		Nonce:  payload.Nonce,
	})
	require.Equal(t, http.StatusNoContent, rec.Code)

	// the cancelled order cannot be filled anymore.
	rec = rig.do(t, http.MethodPost, "/v1/orders/fill", "", fillOrderRequest{
		Order:      payload,
		FillAmount: 40,
		Signature:  signature,
		Caller:     takerAddr.Hex(),
	})
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestFailingOrderEndpoints(t *testing.T) {
	rig := newTestRig(t)

	_, orderMaker := newOrderMaker(t)
	rig.ledger.Credit(testAsset, orderMaker, initialBalance)
	rig.ledger.Approve(testAsset, orderMaker, initialBalance)

	strangerKey, _ := btcec.PrivKeyFromBytes(mustDecodeHex(
		"4c0883a69102937d6231471b5dbb6204fe51296170827936ea5cce4b76994b0f",
	))
	payload := newOrderPayload(orderMaker)
	forgedSignature := rig.signOrder(t, strangerKey, payload)

	rec := rig.do(t, http.MethodPost, "/v1/orders/fill", "", fillOrderRequest{
		Order:      payload,
		FillAmount: 60,
		Signature:  forgedSignature,
		Caller:     takerAddr.Hex(),
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = rig.do(t, http.MethodPost, "/v1/orders/fill", "", fillOrderRequest{
		Order:      payload,
		FillAmount: 60,
		Signature:  "zz-not-hex",
		Caller:     takerAddr.Hex(),
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = rig.do(t, http.MethodPost, "/v1/orders/cancel", "", cancelOrderRequest{
		Caller: common.Address{}.Hex(),
		Nonce:  1,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminEndpoints(t *testing.T) {
	rig := newTestRig(t)
	token := adminToken(t)

	feeBody := updateFeeRequest{Caller: adminAddr.Hex(), NewBasisPoints: 100}

	rec := rig.do(t, http.MethodPut, "/v1/admin/fee", "", feeBody)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = rig.do(t, http.MethodPut, "/v1/admin/fee", "garbage", feeBody)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = rig.do(t, http.MethodPut, "/v1/admin/fee", token, feeBody)
	require.Equal(t, http.StatusNoContent, rec.Code)

	// a valid token does not bypass the admin role check on the caller.
	rec = rig.do(t, http.MethodPut, "/v1/admin/fee", token, updateFeeRequest{
		Caller: strangerAddr.Hex(), NewBasisPoints: 10,
	})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = rig.do(t, http.MethodGet, "/v1/info", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var info infoView
	decodeBody(t, rec, &info)
	require.Equal(t, adminAddr.Hex(), info.Admin)
	require.Equal(t, vaultAddr.Hex(), info.FeeVault)
	require.Equal(t, uint32(100), info.FeeBasisPoints)
	require.Equal(t, uint32(1000), info.FeeCeiling)

	rec = rig.do(t, http.MethodPut, "/v1/admin/vault", token, updateVaultRequest{
		Caller: adminAddr.Hex(),
		Vault:  strangerAddr.Hex(),
	})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = rig.do(t, http.MethodGet, "/v1/events/topics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var topics topicsResponse
	decodeBody(t, rec, &topics)
	require.Len(t, topics.Topics, 15)

	rec = rig.do(t, http.MethodPost, "/v1/admin/webhooks", token, webhookRequest{
		Topic:    apppubsub.EventTradeSettled,
		Endpoint: "http://localhost:8888/hook",
		Secret:   "s3cret",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var webhook webhookIdResponse
	decodeBody(t, rec, &webhook)
	require.NotEmpty(t, webhook.Id)

	rec = rig.do(t, http.MethodGet, "/v1/admin/webhooks", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var webhooks []webhookView
	decodeBody(t, rec, &webhooks)
	require.Len(t, webhooks, 1)
	require.Equal(t, webhook.Id, webhooks[0].Id)
	require.True(t, webhooks[0].Secured)

	rec = rig.do(t, http.MethodPost, "/v1/admin/webhooks", token, webhookRequest{
		Topic:    "NOT_A_TOPIC",
		Endpoint: "http://localhost:8888/hook",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	target := fmt.Sprintf("/v1/admin/webhooks/%s", webhook.Id)
	rec = rig.do(t, http.MethodDelete, target, token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = rig.do(t, http.MethodDelete, target, token, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminDisputeEndpoints(t *testing.T) {
	rig := newTestRig(t)
	token := adminToken(t)

	resolved := rig.newDisputedTrade(t)
	target := fmt.Sprintf("/v1/admin/trades/%d/resolve", resolved)
	rec := rig.do(t, http.MethodPost, target, token, resolveDisputeRequest{
		Caller: adminAddr.Hex(),
		Winner: makerAddr.Hex(),
		Reason: "taker unresponsive",
	})
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "admin_closed", rig.tradeStatus(t, resolved))

	cleared := rig.newDisputedTrade(t)
	target = fmt.Sprintf("/v1/admin/trades/%d/clear", cleared)
	rec = rig.do(t, http.MethodPost, target, token, clearDisputeRequest{
		Caller: adminAddr.Hex(),
		Reason: "settled off band",
	})
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "funded", rig.tradeStatus(t, cleared))

	withdrawn := rig.newDisputedTrade(t)
	target = fmt.Sprintf("/v1/admin/trades/%d/withdraw", withdrawn)
	rec = rig.do(t, http.MethodPost, target, token, callerRequest{
		Caller: adminAddr.Hex(),
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var amount amountResponse
	decodeBody(t, rec, &amount)
	require.Equal(t, uint64(20000), amount.Amount)
	require.Equal(t, "admin_closed", rig.tradeStatus(t, withdrawn))

	// resolving a trade that is not disputed is a state conflict.
	target = fmt.Sprintf("/v1/admin/trades/%d/resolve", cleared)
	rec = rig.do(t, http.MethodPost, target, token, resolveDisputeRequest{
		Caller: adminAddr.Hex(),
		Winner: makerAddr.Hex(),
	})
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestEventsWsRoute(t *testing.T) {
	rig := newTestRig(t)

	// a plain GET without the upgrade handshake is rejected by the upgrader.
	rec := rig.do(t, http.MethodGet, "/v1/events/ws", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

type testRig struct {
	handler  http.Handler
	ledger   *ledger.InProcessLedger
	verifier *orderauth.Verifier
}

func newTestRig(t *testing.T) *testRig {
	repoManager := inmemory.NewRepoManager()
	assetLedger := ledger.NewInProcessLedger()

	securePubSub, err := pubsubstore.NewService("", nil)
	require.NoError(t, err)
	pubsubSvc, err := apppubsub.NewService(securePubSub, nil)
	require.NoError(t, err)
	t.Cleanup(pubsubSvc.Close)

	opGuard := guard.New()
	verifier := orderauth.NewVerifier(orderauth.Domain{
		Name:       "escrowd",
		Version:    "1",
		ChainID:    1337,
		InstanceID: "testnet",
	})

	tradeSvc, err := trade.NewService(repoManager, assetLedger, pubsubSvc, opGuard)
	require.NoError(t, err)
	disputeSvc, err := dispute.NewService(repoManager, assetLedger, pubsubSvc, opGuard)
	require.NoError(t, err)
	orderSvc, err := order.NewService(
		repoManager, assetLedger, verifier, pubsubSvc, opGuard,
	)
	require.NoError(t, err)
	operatorSvc, err := operator.NewService(repoManager, pubsubSvc, 1000, "test")
	require.NoError(t, err)

	require.NoError(t, operatorSvc.InitSettings(ctx, adminAddr, vaultAddr, 50))

	for _, party := range []common.Address{makerAddr, takerAddr} {
		assetLedger.Credit(testAsset, party, initialBalance)
		assetLedger.Approve(testAsset, party, initialBalance)
	}

	svc, err := NewService(ServiceOpts{
		Port:        9945,
		AdminSecret: testSecret,
		TradeSvc:    tradeSvc,
		DisputeSvc:  disputeSvc,
		OrderSvc:    orderSvc,
		OperatorSvc: operatorSvc,
		Hub:         NewEventHub(),
	})
	require.NoError(t, err)

	return &testRig{
		handler:  svc.server.Handler,
		ledger:   assetLedger,
		verifier: verifier,
	}
}

func (r *testRig) do(
	t *testing.T, method, target, token string, body interface{},
) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, target, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}

	rec := httptest.NewRecorder()
	r.handler.ServeHTTP(rec, req)
	return rec
}

func (r *testRig) newDisputedTrade(t *testing.T) uint64 {
	rec := r.do(t, http.MethodPost, "/v1/trades", "", newTradeBody())
	require.Equal(t, http.StatusCreated, rec.Code)
	var created idResponse
	decodeBody(t, rec, &created)

	for _, party := range []common.Address{makerAddr, takerAddr} {
		target := fmt.Sprintf("/v1/trades/%d/fund", created.Id)
		rec := r.do(
			t, http.MethodPost, target, "", callerRequest{Caller: party.Hex()},
		)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	target := fmt.Sprintf("/v1/trades/%d/dispute", created.Id)
	rec = r.do(
		t, http.MethodPost, target, "", callerRequest{Caller: takerAddr.Hex()},
	)
	require.Equal(t, http.StatusNoContent, rec.Code)
	return created.Id
}

func (r *testRig) tradeStatus(t *testing.T, tradeId uint64) string {
	rec := r.do(t, http.MethodGet, fmt.Sprintf("/v1/trades/%d", tradeId), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var view tradeView
	decodeBody(t, rec, &view)
	return view.Status
}

func (r *testRig) signOrder(
	t *testing.T, key *btcec.PrivateKey, payload orderPayload,
) string {
	sellOrder, err := payload.toDomain()
	require.NoError(t, err)
	signature, err := orderauth.Sign(key, r.verifier.Digest(sellOrder))
	require.NoError(t, err)
	return hexutil.Encode(signature)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	require.NoError(t, json.NewDecoder(rec.Body).Decode(v))
}

func adminToken(t *testing.T) string {
	token, err := jwt.New(jwt.SigningMethodHS256).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func newTradeBody() map[string]interface{} {
	return map[string]interface{}{
		"maker":          makerAddr.Hex(),
		"taker":          takerAddr.Hex(),
		"asset":          testAsset,
		"price":          10000,
		"deposit":        5000,
		"funding_window": 600,
		"direction":      "maker_sells",
		"agreement_hash": agreementHash,
	}
}

func newOrderMaker(t *testing.T) (*btcec.PrivateKey, common.Address) {
	key, _ := btcec.PrivKeyFromBytes(mustDecodeHex(
		"b17b27468eed071b74f97d0f85016303229311b1a9b5ab4b16a81a566ad3a1e9",
	))
	addr, err := orderauth.AddressOf(key)
	require.NoError(t, err)
	return key, addr
}

func newOrderPayload(orderMaker common.Address) orderPayload {
	return orderPayload{
		Maker:         orderMaker.Hex(),
		Asset:         testAsset,
		UnitPrice:     100,
		UnitDeposit:   50,
		TotalQuantity: 100,
		MinFillAmount: 10,
		Nonce:         1,
		Direction:     "maker_sells",
		AgreementHash: agreementHash,
	}
}

func mustDecodeHex(s string) []byte {
	buf, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return buf
}
