package types

// Service identifies a billable generation backend.
type Service string

const (
	ServiceFlux  Service = "flux"
	ServiceKling Service = "kling"
)

// Services lists every known service in stable order.
var Services = []Service{ServiceFlux, ServiceKling}

func ParseService(s string) (Service, bool) {
	switch Service(s) {
	case ServiceFlux:
		return ServiceFlux, true
	case ServiceKling:
		return ServiceKling, true
	default:
		return "", false
	}
}

// Decision is the outcome of an access check.
type Decision string

const (
	DecisionUnrestricted Decision = "unrestricted"
	DecisionOK           Decision = "ok"
	DecisionSoftWarn     Decision = "soft_warn"
	DecisionHardBlock    Decision = "hard_block"
)

// OpStatus tracks a pending billable operation.
// Transitions: consumed -> completed or consumed -> refunded, exactly once.
type OpStatus string

const (
	OpStatusConsumed  OpStatus = "consumed"
	OpStatusCompleted OpStatus = "completed"
	OpStatusRefunded  OpStatus = "refunded"
)
