package rpc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"chainlist-prober/internal/pkg/apperrors"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// checkWS performs both stages over one WebSocket connection: the handshake is
// the connectivity stage, one request/response exchange is the RPC stage.
func (c *Checker) checkWS(ctx context.Context, rpcURL string) (reachable bool, blockNumber string, err error) {
	handshakeTimeout, err := stageTimeout(ctx, c.connectTimeout)
	if err != nil {
		return false, "", err
	}

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: handshakeTimeout,
	}

	dialCtx, cancel := context.WithTimeout(ctx, handshakeTimeout)
	defer cancel()

	c.logger.Debug("Attempting WSS connection",
		zap.String("url", rpcURL), zap.Duration("handshakeTimeout", handshakeTimeout),
	)

	conn, _, err := dialer.DialContext(dialCtx, rpcURL, nil)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(dialCtx.Err(), context.DeadlineExceeded) {
			return false, "", fmt.Errorf("%w: wss dial to %s timed out: %v", apperrors.ErrTimeout, rpcURL, err)
		}
		return false, "", fmt.Errorf("%w: wss dial to %s failed: %v", apperrors.ErrExternalServiceFailure, rpcURL, err)
	}
	defer conn.Close()

	operationTimeout, err := stageTimeout(ctx, c.rpcTimeout)
	if err != nil {
		return true, "", err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(operationTimeout))
	_ = conn.SetReadDeadline(time.Now().Add(operationTimeout))

	if wErr := conn.WriteMessage(websocket.TextMessage, checkPayload); wErr != nil {
		return true, "", fmt.Errorf("%w: wss write to %s failed: %v", apperrors.ErrExternalServiceFailure, rpcURL, wErr)
	}

	_, message, rErr := conn.ReadMessage()
	if rErr != nil {
		return true, "", fmt.Errorf("%w: wss read from %s failed: %v", apperrors.ErrExternalServiceFailure, rpcURL, rErr)
	}

	c.logger.Debug("WSS received response", zap.String("url", rpcURL), zap.ByteString("body", message))

	blockNumber, err = ValidateBlockNumberResponse(message)
	if err != nil {
		return true, "", fmt.Errorf("rpc %s: %w", rpcURL, err)
	}
	return true, blockNumber, nil
}
