// Package capture loads the two captured byte streams of one connection and
// runs them through the decoder and the matcher.
package capture

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/danmuck/amqpdetective/internal/detective"
	"github.com/danmuck/amqpdetective/internal/grammar"
	"github.com/danmuck/amqpdetective/internal/observability"
	"github.com/danmuck/amqpdetective/internal/protocol/frame"
	"github.com/rs/zerolog/log"
)

var ErrTooLarge = errors.New("capture: exceeds size limit")

// Stream is one decoded side. Err is the terminal decode error; Messages
// holds everything decoded before it.
type Stream struct {
	Source   frame.Source
	Name     string
	Size     int
	Messages []frame.Message
	Err      error
}

// Read reads all of r, failing with ErrTooLarge past limit bytes. A limit of
// zero or less disables the check.
func Read(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, limit)
	}
	return data, nil
}

func ReadFile(path string, limit int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("capture open failed (%s): %w", path, err)
	}
	defer f.Close()
	data, err := Read(f, limit)
	if err != nil {
		return nil, fmt.Errorf("capture read failed (%s): %w", path, err)
	}
	return data, nil
}

// Decode decodes one side and records decode metrics.
func Decode(source frame.Source, name string, data []byte) Stream {
	msgs, err := frame.DecodeAll(source, data)
	observability.RecordDecode(source, msgs, err)
	if err != nil {
		log.Debug().Str("side", source.String()).Str("capture", name).Err(err).Int("decoded", len(msgs)).Msg("capture decode stopped")
	}
	return Stream{Source: source, Name: name, Size: len(data), Messages: msgs, Err: err}
}

// LoadFile reads and decodes one side from disk.
func LoadFile(source frame.Source, path string, limit int64) (Stream, error) {
	data, err := ReadFile(path, limit)
	if err != nil {
		return Stream{}, err
	}
	return Decode(source, path, data), nil
}

// Analyze matches rule (the grammar root when empty) against both streams.
// Decode errors do not stop the analysis; the streams keep them.
func Analyze(g *grammar.Grammar, rule string, client, server Stream) (detective.Result, error) {
	if g == nil {
		g = grammar.AMQP091()
	}
	if rule == "" {
		rule = g.Root()
	}
	res, err := detective.New(g, client.Messages, server.Messages).AnalyzeRule(rule)
	if err != nil {
		return detective.Result{}, err
	}
	observability.RecordAnalysis(res)
	log.Info().
		Str("rule", rule).
		Str("outcome", res.Outcome()).
		Int("client_messages", len(client.Messages)).
		Int("server_messages", len(server.Messages)).
		Int("flagged", res.Flagged).
		Msg("analysis complete")
	return res, nil
}

// DecodeErr joins the decode errors of both streams.
func DecodeErr(client, server Stream) error {
	return errors.Join(client.Err, server.Err)
}
