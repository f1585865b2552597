package supervise

import "context"

// Controller is the process-control surface the orchestration core depends
// on. Implementations own process lifecycle; the core only issues commands
// and reads state. All methods address services by their supervisord program
// name.
type Controller interface {
	Start(ctx context.Context, name string) error
	Stop(ctx context.Context, name string) error
	Restart(ctx context.Context, name string) error
	Status(ctx context.Context, name string) (RunState, error)
}
