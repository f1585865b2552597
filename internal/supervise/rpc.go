package supervise

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/kolo/xmlrpc"
	"github.com/rs/zerolog"
)

// supervisord process state codes, per its XML-RPC API documentation.
const (
	stateStopped  = 0
	stateStarting = 10
	stateRunning  = 20
	stateBackoff  = 30
	stateStopping = 40
	stateExited   = 100
	stateFatal    = 200
	stateUnknown  = 1000
)

// supervisord XML-RPC fault codes the controller has to absorb.
const (
	faultBadName        = 10
	faultAlreadyStarted = 60
	faultNotRunning     = 70
)

const rpcTimeout = 30 * time.Second

// caller is the subset of the XML-RPC client the controller uses.
type caller interface {
	Call(serviceMethod string, args any, reply any) error
}

// processInfo mirrors the supervisor.getProcessInfo response.
type processInfo struct {
	Name       string `xmlrpc:"name"`
	Group      string `xmlrpc:"group"`
	StateName  string `xmlrpc:"statename"`
	State      int    `xmlrpc:"state"`
	PID        int    `xmlrpc:"pid"`
	ExitStatus int    `xmlrpc:"exitstatus"`
	SpawnErr   string `xmlrpc:"spawnerr"`
	Desc       string `xmlrpc:"description"`
}

// RPCController drives supervisord through its XML-RPC interface.
type RPCController struct {
	logger zerolog.Logger
	client caller
}

// NewRPCController connects to a supervisord RPC endpoint, typically
// http://127.0.0.1:9001/RPC2.
func NewRPCController(logger zerolog.Logger, rpcURL string) (*RPCController, error) {
	transport := &http.Transport{
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
		ResponseHeaderTimeout: rpcTimeout,
	}
	client, err := xmlrpc.NewClient(rpcURL, transport)
	if err != nil {
		return nil, fmt.Errorf("connect supervisord rpc: %w", err)
	}
	return &RPCController{logger: logger, client: client}, nil
}

func newRPCControllerWithCaller(logger zerolog.Logger, c caller) *RPCController {
	return &RPCController{logger: logger, client: c}
}

// Start launches a process. A process that is already up is not an error.
func (c *RPCController) Start(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var ok bool
	err := c.client.Call("supervisor.startProcess", []any{name, false}, &ok)
	if isFault(err, faultAlreadyStarted) {
		c.logger.Debug().Str("service", name).Msg("start absorbed, already running")
		return nil
	}
	if err != nil {
		return fmt.Errorf("start %s: %w", name, err)
	}
	return nil
}

// Stop halts a process. A process that is already down is not an error.
func (c *RPCController) Stop(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var ok bool
	err := c.client.Call("supervisor.stopProcess", []any{name, true}, &ok)
	if isFault(err, faultNotRunning) {
		c.logger.Debug().Str("service", name).Msg("stop absorbed, not running")
		return nil
	}
	if err != nil {
		return fmt.Errorf("stop %s: %w", name, err)
	}
	return nil
}

// Restart is stop-then-start, matching supervisorctl semantics. Both halves
// absorb already-in-that-state faults, so issuing Restart twice in a row is
// safe.
func (c *RPCController) Restart(ctx context.Context, name string) error {
	if err := c.Stop(ctx, name); err != nil {
		return err
	}
	return c.Start(ctx, name)
}

// Status reports the current run state of a process.
func (c *RPCController) Status(ctx context.Context, name string) (RunState, error) {
	if err := ctx.Err(); err != nil {
		return RunState{}, err
	}
	var info processInfo
	if err := c.client.Call("supervisor.getProcessInfo", name, &info); err != nil {
		if isFault(err, faultBadName) {
			return RunState{}, fmt.Errorf("status %s: unknown process", name)
		}
		return RunState{}, fmt.Errorf("status %s: %w", name, err)
	}
	return mapProcessInfo(info), nil
}

func mapProcessInfo(info processInfo) RunState {
	detail := info.Desc
	if info.SpawnErr != "" {
		detail = info.SpawnErr
	}
	switch info.State {
	case stateStopped, stateStopping:
		return RunState{Phase: PhaseStopped, Detail: detail}
	case stateStarting, stateBackoff:
		return RunState{Phase: PhaseStarting, Detail: detail}
	case stateRunning:
		return RunState{Phase: PhaseRunning, PID: info.PID, Detail: detail}
	case stateExited:
		return RunState{Phase: PhaseExited, ExitCode: info.ExitStatus, Detail: detail}
	case stateFatal:
		return RunState{Phase: PhaseFailed, ExitCode: info.ExitStatus, Detail: detail}
	case stateUnknown:
		fallthrough
	default:
		return RunState{Phase: PhaseFailed, Detail: fmt.Sprintf("unrecognized state %s (%d)", info.StateName, info.State)}
	}
}

func isFault(err error, code int) bool {
	if err == nil {
		return false
	}
	var fault xmlrpc.FaultError
	if errors.As(err, &fault) {
		return fault.Code == code
	}
	return false
}
