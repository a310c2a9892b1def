package lifecycle

import "fmt"

// LifecycleOrderError is returned when Start or Stop is called out of order.
type LifecycleOrderError struct {
	Operation string
	Phase     string
}

func (e *LifecycleOrderError) Error() string {
	return fmt.Sprintf("cannot %s a forwarder that is %s", e.Operation, e.Phase)
}
