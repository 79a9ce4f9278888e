package execution

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/polymarket/go-order-utils/pkg/builder"
	"github.com/polymarket/go-order-utils/pkg/model"
	"go.uber.org/zap"

	"github.com/mselser95/predmarket-arb/pkg/types"
)

// OrderClient signs and submits orders against the venue's CLOB API. It
// carries the teacher's EIP-712 build/sign/HMAC-submit pipeline, generalized
// from the teacher's fixed two-leg (YES/NO) batch call to one order per
// arbitrage edge, submitted independently (§4.8 step 4: "fan-out: one task
// per edge").
type OrderClient struct {
	apiKey        string
	secret        string
	passphrase    string
	privateKey    *ecdsa.PrivateKey
	address       string
	proxyAddress  string
	signatureType model.SignatureType
	orderBuilder  builder.ExchangeOrderBuilder
	baseURL       string
	httpClient    *http.Client
	logger        *zap.Logger
}

// OrderClientConfig configures a venue-signing OrderClient.
type OrderClientConfig struct {
	APIKey         string
	Secret         string
	Passphrase     string
	PrivateKey     string
	Address        string
	ProxyAddress   string
	SignatureType  int
	BaseURL        string
	RequestTimeout time.Duration
	Logger         *zap.Logger
}

// NewOrderClient builds an OrderClient, deriving the EOA address from the
// private key when not supplied explicitly.
func NewOrderClient(cfg *OrderClientConfig) (*OrderClient, error) {
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	address := cfg.Address
	if address == "" {
		publicKeyECDSA, ok := privateKey.Public().(*ecdsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("derive address: unexpected public key type")
		}
		address = crypto.PubkeyToAddress(*publicKeyECDSA).Hex()
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://clob.polymarket.com"
	}
	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	chainID := big.NewInt(137) // Polygon mainnet
	return &OrderClient{
		apiKey:        cfg.APIKey,
		secret:        cfg.Secret,
		passphrase:    cfg.Passphrase,
		privateKey:    privateKey,
		address:       address,
		proxyAddress:  cfg.ProxyAddress,
		signatureType: model.SignatureType(cfg.SignatureType),
		orderBuilder:  builder.NewExchangeOrderBuilderImpl(chainID, nil),
		baseURL:       baseURL,
		httpClient:    &http.Client{Timeout: timeout},
		logger:        cfg.Logger,
	}, nil
}

func (c *OrderClient) makerAddress() string {
	if c.proxyAddress != "" {
		return c.proxyAddress
	}
	return c.address
}

// PlaceGTC builds, signs, and submits a single good-til-cancelled buy order
// for one edge (§4.8 steps 2-3). The caller supplies the rounded token size
// and price already validated against the book.
func (c *OrderClient) PlaceGTC(ctx context.Context, tokenID string, tokenAmount, usdAmount string) (*types.OrderSubmissionResponse, error) {
	orderData := &model.OrderData{
		Maker:         c.makerAddress(),
		Taker:         "0x0000000000000000000000000000000000000000",
		TokenId:       tokenID,
		MakerAmount:   usdAmount,
		TakerAmount:   tokenAmount,
		Side:          model.BUY,
		FeeRateBps:    "0",
		Nonce:         "0",
		Signer:        c.address,
		Expiration:    "0", // 0 = GTC, no expiry
		SignatureType: c.signatureType,
	}

	signedOrder, err := c.orderBuilder.BuildSignedOrder(c.privateKey, orderData, model.CTFExchange)
	if err != nil {
		return nil, fmt.Errorf("build order: %w", err)
	}

	c.logger.Debug("gtc-order-signed", zap.String("token-id", tokenID), zap.String("maker", orderData.Maker))

	return c.submitOrder(ctx, signedOrder, "GTC")
}

// PlaceFOK builds, signs, and submits a single fill-or-kill buy order: same
// shape as PlaceGTC but the venue cancels it immediately if it can't fill
// in full against the resting book, used by the latency probe to measure
// taker-side submit latency without leaving a resting order behind.
func (c *OrderClient) PlaceFOK(ctx context.Context, tokenID string, tokenAmount, usdAmount string) (*types.OrderSubmissionResponse, error) {
	orderData := &model.OrderData{
		Maker:         c.makerAddress(),
		Taker:         "0x0000000000000000000000000000000000000000",
		TokenId:       tokenID,
		MakerAmount:   usdAmount,
		TakerAmount:   tokenAmount,
		Side:          model.BUY,
		FeeRateBps:    "0",
		Nonce:         "0",
		Signer:        c.address,
		Expiration:    "0",
		SignatureType: c.signatureType,
	}

	signedOrder, err := c.orderBuilder.BuildSignedOrder(c.privateKey, orderData, model.CTFExchange)
	if err != nil {
		return nil, fmt.Errorf("build order: %w", err)
	}

	c.logger.Debug("fok-order-signed", zap.String("token-id", tokenID), zap.String("maker", orderData.Maker))

	return c.submitOrder(ctx, signedOrder, "FOK")
}

// CancelAll cancels every resting order this account has on marketID
// (§4.8 step 5's post-linger cleanup). It is invoked unconditionally and
// its own error is logged, never propagated into the opportunity result.
func (c *OrderClient) CancelAll(ctx context.Context, marketID string) error {
	path := "/cancel-market-orders"
	body := []byte(fmt.Sprintf(`{"market":%q}`, marketID))

	req, err := c.signedRequest(ctx, http.MethodDelete, path, body)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("cancel-all request: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("cancel-all API error (status %d): %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// GetOrder reads an order's current fill state, used to settle the final
// filled_size/total_cost after the post-submit linger and cancel-all.
func (c *OrderClient) GetOrder(ctx context.Context, orderID string) (*types.OrderQueryResponse, error) {
	path := "/data/order/" + orderID

	req, err := c.signedRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get-order request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read get-order response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get-order API error (status %d): %s", resp.StatusCode, string(body))
	}

	var out types.OrderQueryResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("parse get-order response: %w", err)
	}
	return &out, nil
}

// signedRequest builds an HMAC-signed request matching the venue's
// POLY_API_KEY/POLY_SIGNATURE/POLY_TIMESTAMP/POLY_PASSPHRASE/POLY_ADDRESS
// header scheme (ported as-is from the teacher's submitOrder/submitBatchOrder).
func (c *OrderClient) signedRequest(ctx context.Context, method, path string, body []byte) (*http.Request, error) {
	timestamp := fmt.Sprintf("%d", time.Now().Unix())
	payload := timestamp + method + path + string(body)

	secretBytes, err := base64.URLEncoding.DecodeString(c.secret)
	if err != nil {
		return nil, fmt.Errorf("decode secret: %w", err)
	}
	h := hmac.New(sha256.New, secretBytes)
	h.Write([]byte(payload))
	signature := base64.URLEncoding.EncodeToString(h.Sum(nil))

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("POLY_API_KEY", c.apiKey)
	req.Header.Set("POLY_SIGNATURE", signature)
	req.Header.Set("POLY_TIMESTAMP", timestamp)
	req.Header.Set("POLY_PASSPHRASE", c.passphrase)
	req.Header.Set("POLY_ADDRESS", c.address)
	return req, nil
}

func (c *OrderClient) convertToOrderJSON(order *model.SignedOrder) types.SignedOrderJSON {
	sideStr := "BUY"
	if order.Side.Uint64() == uint64(model.SELL) {
		sideStr = "SELL"
	}
	return types.SignedOrderJSON{
		Salt:          order.Salt.Int64(),
		Maker:         order.Maker.Hex(),
		Signer:        order.Signer.Hex(),
		Taker:         order.Taker.Hex(),
		TokenID:       order.TokenId.String(),
		MakerAmount:   order.MakerAmount.String(),
		TakerAmount:   order.TakerAmount.String(),
		Side:          sideStr,
		Expiration:    order.Expiration.String(),
		Nonce:         order.Nonce.String(),
		FeeRateBps:    order.FeeRateBps.String(),
		SignatureType: int(order.SignatureType.Int64()),
		Signature:     "0x" + common.Bytes2Hex(order.Signature),
	}
}

func (c *OrderClient) submitOrder(ctx context.Context, order *model.SignedOrder, orderType string) (*types.OrderSubmissionResponse, error) {
	orderRequest := types.OrderSubmissionRequest{
		Order:     c.convertToOrderJSON(order),
		Owner:     c.apiKey,
		OrderType: orderType,
	}
	reqBody, err := json.Marshal(orderRequest)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := c.signedRequest(ctx, http.MethodPost, "/order", reqBody)
	if err != nil {
		return nil, err
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK && httpResp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("API error (status %d): %s", httpResp.StatusCode, string(body))
	}

	var resp types.OrderSubmissionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return &resp, nil
}
