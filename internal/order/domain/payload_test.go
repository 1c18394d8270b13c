package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInboundPayload(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantErr   bool
		wantOrder string
	}{
		{name: "objeto con orderId", body: `{"orderId":"A1","amount":10}`, wantOrder: "A1"},
		{name: "objeto sin orderId", body: `{"amount":10}`, wantOrder: ""},
		{name: "orderId numérico cuenta como ausente", body: `{"orderId":7}`, wantOrder: ""},
		{name: "json inválido", body: `{"orderId":`, wantErr: true},
		{name: "array", body: `[{"orderId":"A1"}]`, wantErr: true},
		{name: "null", body: `null`, wantErr: true},
		{name: "vacío", body: ``, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParseInboundPayload([]byte(tt.body))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedPayload)
				assert.Nil(t, p)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantOrder, p.OrderID)
			assert.Empty(t, p.CorrelationID)
		})
	}
}

func TestInboundPayload_TagAndMarshal(t *testing.T) {
	p, err := ParseInboundPayload([]byte(`{"orderId":"A1","uuid":"client-supplied","nested":{"qty":1.50}}`))
	require.NoError(t, err)
	assert.Empty(t, p.CorrelationID, "el uuid del cliente no se respeta")

	p.Tag("0b7e7c1e-4a55-4bb6-8d39-2f0f8a4b6b11")
	data, err := json.Marshal(p)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "A1", got["orderId"])
	assert.Equal(t, "0b7e7c1e-4a55-4bb6-8d39-2f0f8a4b6b11", got["uuid"])

	// los campos opacos viajan sin tocar
	nested, ok := p.Field("nested")
	require.True(t, ok)
	assert.JSONEq(t, `{"qty":1.50}`, string(nested))
}

func TestDecodeQueueBody(t *testing.T) {
	p, err := DecodeQueueBody([]byte(`{"orderId":"A1","uuid":"c-1"}`))
	require.NoError(t, err)
	assert.Equal(t, "A1", p.OrderID)
	assert.Equal(t, "c-1", p.CorrelationID)

	// sin orderId: error pero correlation id recuperable
	p, err = DecodeQueueBody([]byte(`{"uuid":"c-2"}`))
	assert.ErrorIs(t, err, ErrMalformedPayload)
	require.NotNil(t, p)
	assert.Equal(t, "c-2", p.CorrelationID)

	p, err = DecodeQueueBody([]byte(`not-json`))
	assert.ErrorIs(t, err, ErrMalformedPayload)
	assert.Nil(t, p)
}
