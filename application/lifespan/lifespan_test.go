package lifespan

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"appgate/protocol"
	"appgate/protocol/script"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type MachineTestSuite struct {
	suite.Suite

	ctx    context.Context
	logger *slog.Logger

	startups, shutdowns int
	startupErr          error
	shutdownErr         error

	hooks Hooks
}

func TestMachineTestSuite(t *testing.T) {
	suite.Run(t, new(MachineTestSuite))
}

func (s *MachineTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	s.startups, s.shutdowns = 0, 0
	s.startupErr, s.shutdownErr = nil, nil

	s.hooks = Funcs{
		OnStartup: func(ctx context.Context) error {
			s.startups++
			return s.startupErr
		},
		OnShutdown: func(ctx context.Context) error {
			s.shutdowns++
			return s.shutdownErr
		},
	}
}

func (s *MachineTestSuite) run(opts Options, msgs ...protocol.Message) (*Machine, *script.Channel, error) {
	ch := script.New(msgs...)
	m := New(s.hooks, s.logger, opts)
	err := m.Run(s.ctx, ch.Receive, ch.Send)
	return m, ch, err
}

func (s *MachineTestSuite) TestHandshake() {
	m, ch, err := s.run(Options{}, protocol.LifespanStartup{}, protocol.LifespanShutdown{})
	s.NoError(err)
	s.Equal(Complete, m.State())
	s.Equal([]protocol.Message{
		protocol.LifespanStartupComplete{},
		protocol.LifespanShutdownComplete{},
	}, ch.Sent())
	s.Equal(1, s.startups)
	s.Equal(1, s.shutdowns)
}

func (s *MachineTestSuite) TestFirstMessageNotStartup() {
	m, ch, err := s.run(Options{}, protocol.HTTPRequest{Body: []byte("x")})
	s.ErrorIs(err, protocol.ErrProtocolViolation)
	s.Equal(AwaitingStartup, m.State())
	s.Empty(ch.Sent())
	s.Zero(s.startups)
	s.Zero(s.shutdowns)
}

func (s *MachineTestSuite) TestStartupFailed() {
	s.startupErr = errors.New("datastore unreachable")

	m, ch, err := s.run(Options{}, protocol.LifespanStartup{}, protocol.LifespanShutdown{})
	s.ErrorIs(err, ErrHandlerFailure)
	s.ErrorIs(err, s.startupErr)

	var failure *Failure
	s.Require().ErrorAs(err, &failure)
	s.Equal(PhaseStartup, failure.Phase)

	s.Equal(StartupFailed, m.State())
	s.Require().Len(ch.Sent(), 1)
	sent, ok := ch.Sent()[0].(protocol.LifespanStartupFailed)
	s.Require().True(ok)
	s.Contains(sent.Message, "datastore unreachable")
	// Diagnostic carries a stack trace.
	s.Contains(sent.Message, "lifespan_test.go")

	s.Zero(s.shutdowns)
	s.Equal(1, ch.Remaining())
}

func (s *MachineTestSuite) TestStartupPanics() {
	s.hooks = Funcs{OnStartup: func(ctx context.Context) error { panic("boom") }}

	m, ch, err := s.run(Options{}, protocol.LifespanStartup{})
	s.ErrorIs(err, ErrHandlerFailure)
	s.Equal(StartupFailed, m.State())
	s.Equal([]protocol.Type{protocol.TypeLifespanStartupFailed}, ch.SentTypes())
	s.Contains(ch.Sent()[0].(protocol.LifespanStartupFailed).Message, "boom")
}

func (s *MachineTestSuite) TestShutdownFailed() {
	s.shutdownErr = errors.New("metrics flush failed")

	m, ch, err := s.run(Options{}, protocol.LifespanStartup{}, protocol.LifespanShutdown{})
	s.NoError(err)
	s.Equal(ShutdownFailed, m.State())
	s.Equal([]protocol.Type{
		protocol.TypeLifespanStartupComplete,
		protocol.TypeLifespanShutdownFailed,
	}, ch.SentTypes())
	s.Contains(ch.Sent()[1].(protocol.LifespanShutdownFailed).Message, "metrics flush failed")
	s.Equal(1, s.shutdowns)
}

func (s *MachineTestSuite) TestSecondMessageNotShutdown() {
	m, ch, err := s.run(Options{}, protocol.LifespanStartup{}, protocol.LifespanStartup{})
	s.ErrorIs(err, protocol.ErrProtocolViolation)
	s.Equal(Running, m.State())
	s.Equal([]protocol.Type{protocol.TypeLifespanStartupComplete}, ch.SentTypes())
	// Resources are still released.
	s.Equal(1, s.shutdowns)
}

func (s *MachineTestSuite) TestChannelClosedWhileRunning() {
	m, ch, err := s.run(Options{}, protocol.LifespanStartup{})
	s.ErrorIs(err, protocol.ErrChannelClosed)
	s.Equal(Running, m.State())
	s.Equal([]protocol.Type{protocol.TypeLifespanStartupComplete}, ch.SentTypes())
	s.Equal(1, s.shutdowns)
}

func (s *MachineTestSuite) TestChannelClosedBeforeStartup() {
	m, ch, err := s.run(Options{})
	s.ErrorIs(err, protocol.ErrChannelClosed)
	s.Equal(AwaitingStartup, m.State())
	s.Empty(ch.Sent())
}

func (s *MachineTestSuite) TestSendFailsOnCompletion() {
	ch := script.New(protocol.LifespanStartup{}, protocol.LifespanShutdown{}).FailSendsAfter(0)
	m := New(s.hooks, s.logger, Options{})

	err := m.Run(s.ctx, ch.Receive, ch.Send)
	s.ErrorIs(err, protocol.ErrChannelClosed)
	s.Equal(StartupFailed, m.State())
	s.Empty(ch.Sent())
	s.Equal(1, s.shutdowns)
}

func (s *MachineTestSuite) TestRunTwice() {
	m, _, err := s.run(Options{}, protocol.LifespanStartup{}, protocol.LifespanShutdown{})
	s.Require().NoError(err)

	ch := script.New(protocol.LifespanStartup{})
	s.ErrorIs(m.Run(s.ctx, ch.Receive, ch.Send), protocol.ErrProtocolViolation)
	s.Equal(1, s.startups)
}

func (s *MachineTestSuite) TestEchoVariant() {
	m, ch, err := s.run(Options{Variant: VariantEcho}, protocol.LifespanStartup{}, protocol.LifespanShutdown{})
	s.NoError(err)
	s.Equal(Complete, m.State())
	s.Equal([]protocol.Message{
		protocol.LifespanStartup{},
		protocol.LifespanShutdown{},
	}, ch.Sent())
}

func (s *MachineTestSuite) TestEchoVariantFailure() {
	s.startupErr = errors.New("nope")

	m, ch, err := s.run(Options{Variant: VariantEcho}, protocol.LifespanStartup{})
	s.ErrorIs(err, ErrHandlerFailure)
	s.Equal(StartupFailed, m.State())
	s.Empty(ch.Sent())
}

func (s *MachineTestSuite) TestOneCompletionPerPhase() {
	sequences := [][]protocol.Message{
		{protocol.LifespanStartup{}, protocol.LifespanShutdown{}},
		{protocol.LifespanStartup{}},
		{protocol.LifespanStartup{}, protocol.HTTPDisconnect{}},
	}
	errs := []struct{ startup, shutdown error }{
		{nil, nil},
		{errors.New("a"), nil},
		{nil, errors.New("b")},
	}

	for _, msgs := range sequences {
		for _, e := range errs {
			s.SetupTest()
			s.startupErr, s.shutdownErr = e.startup, e.shutdown

			_, ch, _ := s.run(Options{}, msgs...)

			count := map[Phase]int{}
			for _, t := range ch.SentTypes() {
				switch t {
				case protocol.TypeLifespanStartupComplete, protocol.TypeLifespanStartupFailed:
					count[PhaseStartup]++
				case protocol.TypeLifespanShutdownComplete, protocol.TypeLifespanShutdownFailed:
					count[PhaseShutdown]++
				}
			}
			s.LessOrEqual(count[PhaseStartup], 1)
			s.LessOrEqual(count[PhaseShutdown], 1)
		}
	}
}

func (s *MachineTestSuite) TestStateString() {
	s.Equal("running", Running.String())
	s.Equal("unknown", State(42).String())
	s.True(ShutdownFailed.Terminal())
	s.False(Running.Terminal())
}
