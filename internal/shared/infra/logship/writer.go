package logship

import (
	"bytes"
	"context"
	"strconv"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Sink recibe sobres ya codificados.
type Sink interface {
	Send(ctx context.Context, envelope string) error
}

// Writer convierte cada línea que escribe zap en un sobre de un solo evento.
// No puede usar el logger para reportar sus propios fallos: devuelve el error
// y zap lo escribe en su ErrorOutput.
type Writer struct {
	sink      Sink
	logGroup  string
	logStream string
	timeout   time.Duration
	seq       atomic.Uint64
	now       func() time.Time
}

func NewWriter(sink Sink, logGroup, logStream string, timeout time.Duration) *Writer {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Writer{
		sink:      sink,
		logGroup:  logGroup,
		logStream: logStream,
		timeout:   timeout,
		now:       time.Now,
	}
}

// Write implementa io.Writer. zap reutiliza el buffer, así que se copia la línea.
func (w *Writer) Write(p []byte) (int, error) {
	line := string(bytes.TrimRight(p, "\n"))
	now := w.now()

	envelope, err := Encode(Batch{
		MessageType: MessageTypeData,
		LogGroup:    w.logGroup,
		LogStream:   w.logStream,
		LogEvents: []Event{{
			ID:        strconv.FormatUint(w.seq.Add(1), 10),
			Timestamp: now.UnixMilli(),
			Message:   line,
		}},
	})
	if err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()
	if err := w.sink.Send(ctx, envelope); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *Writer) Sync() error { return nil }

// NewCore devuelve un core zap que envía por el Sink las entradas a partir de level.
// Usa el mismo encoder JSON que pkg/logger para que las líneas sean idénticas.
func NewCore(w *Writer, level zapcore.LevelEnabler) zapcore.Core {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.MessageKey = "msg"
	encCfg.LevelKey = "level"
	encCfg.CallerKey = "caller"
	return zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(w), level)
}
