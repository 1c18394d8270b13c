// Package logship empaqueta líneas de log en sobres de transporte
// (JSON -> gzip -> base64) y los entrega a un Sink.
package logship

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"

	"github.com/davicafu/orderflow/internal/order/domain"
)

const MessageTypeData = "DATA_MESSAGE"

// Event es una línea de log dentro de un lote.
type Event struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp"` // epoch millis
	Message   string `json:"message"`
}

// Batch es el contenido descomprimido de un sobre.
type Batch struct {
	MessageType string  `json:"messageType"`
	Owner       string  `json:"owner,omitempty"`
	LogGroup    string  `json:"logGroup"`
	LogStream   string  `json:"logStream"`
	LogEvents   []Event `json:"logEvents"`
}

// Encode serializa, comprime y codifica el lote.
func Encode(b Batch) (string, error) {
	raw, err := json.Marshal(b)
	if err != nil {
		return "", fmt.Errorf("marshal log batch: %w", err)
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return "", fmt.Errorf("gzip log batch: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("gzip log batch: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Decode deshace Encode. Cada etapa fallida se reporta como domain.ErrDecode.
func Decode(data string) (Batch, error) {
	compressed, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return Batch{}, fmt.Errorf("%w: base64: %w", domain.ErrDecode, err)
	}

	zr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return Batch{}, fmt.Errorf("%w: gzip: %w", domain.ErrDecode, err)
	}
	defer zr.Close()

	raw, err := io.ReadAll(zr)
	if err != nil {
		return Batch{}, fmt.Errorf("%w: gzip: %w", domain.ErrDecode, err)
	}

	var b Batch
	if err := json.Unmarshal(raw, &b); err != nil {
		return Batch{}, fmt.Errorf("%w: json: %w", domain.ErrDecode, err)
	}
	return b, nil
}
