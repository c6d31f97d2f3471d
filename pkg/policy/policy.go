package policy

import "time"

// Priority ranks a command's urgency against the server's own internal
// scheduler (spec §4.5).
type Priority int

const (
	PriorityDefault Priority = iota
	PriorityLow
	PriorityMedium
	PriorityHigh
)

// ConsistencyLevel controls how many replicas must agree for a read
// (spec §4.5).
type ConsistencyLevel int

const (
	ConsistencyOne ConsistencyLevel = iota
	ConsistencyAll
)

// ReplicaPolicy selects which replica of a partition a command targets
// (spec §4.3).
type ReplicaPolicy int

const (
	ReplicaMaster ReplicaPolicy = iota
	ReplicaMasterProles
	ReplicaRandom
	ReplicaSequence
)

// CommitLevel controls how a write's durability is reported, and lets a
// caller opt a retried write into safety despite possible duplicate
// application (spec §4.5 retry invariant).
type CommitLevel int

const (
	CommitAll CommitLevel = iota
	CommitMaster
)

// GenerationPolicy controls how a write interacts with a Record's
// generation counter, used by callers as the other opt-in the retry
// invariant names.
type GenerationPolicy int

const (
	GenerationIgnore GenerationPolicy = iota
	GenerationExpectMatch
	GenerationExpectGreater
)

// Policy is the shared field set every Command carries (spec §4.5).
type Policy struct {
	Priority         Priority
	ConsistencyLevel ConsistencyLevel
	Replica          ReplicaPolicy
	TotalTimeout     time.Duration
	SocketTimeout    time.Duration
	MaxRetries       int
	SleepBetween     time.Duration
	RetryOnTimeout   bool
	SendKey          bool
	CommitLevel      CommitLevel
	GenerationPolicy GenerationPolicy
	Generation       uint32
}

// DefaultPolicy returns the baseline used when a caller supplies none.
func DefaultPolicy() Policy {
	return Policy{
		Priority:         PriorityDefault,
		ConsistencyLevel: ConsistencyOne,
		Replica:          ReplicaSequence,
		TotalTimeout:     1 * time.Second,
		SocketTimeout:    30 * time.Second,
		MaxRetries:       2,
		SleepBetween:     1 * time.Millisecond,
		RetryOnTimeout:   false,
		SendKey:          false,
		CommitLevel:      CommitAll,
		GenerationPolicy: GenerationIgnore,
	}
}

// Deadline returns the absolute time a command must finish by, measured
// from start, or the zero Time if TotalTimeout is unlimited (spec §4.5
// step 1).
func (p Policy) Deadline(start time.Time) time.Time {
	if p.TotalTimeout <= 0 {
		return time.Time{}
	}
	return start.Add(p.TotalTimeout)
}

// AttemptDeadline returns the deadline for one attempt's socket I/O:
// the earlier of the socket timeout and the overall deadline.
func (p Policy) AttemptDeadline(now time.Time, overall time.Time) time.Time {
	socketDeadline := time.Time{}
	if p.SocketTimeout > 0 {
		socketDeadline = now.Add(p.SocketTimeout)
	}
	if overall.IsZero() {
		return socketDeadline
	}
	if socketDeadline.IsZero() || overall.Before(socketDeadline) {
		return overall
	}
	return socketDeadline
}

// WriteSafe reports whether a command that mutates state may be safely
// retried under this policy, given that the prior attempt was or was not
// observably delivered to the server (spec §4.5 "Retry invariant").
func (p Policy) WriteSafe(delivered bool) bool {
	if !delivered {
		return true
	}
	return p.GenerationPolicy != GenerationIgnore || p.CommitLevel == CommitMaster
}

// ClientPolicy governs cluster-wide behavior not tied to any one
// command: tend cadence, seed connection budget, and default pool size
// (spec §4.4, §4.7).
type ClientPolicy struct {
	TendInterval      time.Duration
	ConnectionTimeout time.Duration
	FailureThreshold  int
	ConnectionsPerNode int
	IdleTimeout       time.Duration
	User              string
	Password          string
}

// DefaultClientPolicy returns the baseline cluster configuration.
func DefaultClientPolicy() ClientPolicy {
	return ClientPolicy{
		TendInterval:       1 * time.Second,
		ConnectionTimeout:  1 * time.Second,
		FailureThreshold:   5,
		ConnectionsPerNode: 8,
		IdleTimeout:        55 * time.Second,
	}
}
