package stage

import "ecbatch/internal/deps"

// Health summarizes whether a stage could run right now.
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

// Healthy constructs a ready Health record.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy constructs a not-ready Health record explaining why.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Detail: detail}
}

// toolHealth reports a tool-backed stage as ready when its binary resolves,
// carrying the resolved path as detail.
func toolHealth(name, binary string) Health {
	resolved, err := deps.Resolve(binary)
	if err != nil {
		return Unhealthy(name, err.Error())
	}
	return Health{Name: name, Ready: true, Detail: resolved}
}
