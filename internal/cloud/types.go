// Package cloud provides the AWS EC2 and SSM integration for the autoscaler.
package cloud

// Instance power states as reported by the provider. Anything other than
// running or stopped (pending, stopping, ...) is treated as transitional.
const (
	StateRunning = "running"
	StateStopped = "stopped"
	StateUnknown = "unknown"
)

// InstanceInfo is a fresh snapshot of the managed instance. It is read from
// the provider at the start of every lifecycle operation and never cached
// across cycles, since the instance may be modified out-of-band.
type InstanceInfo struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	State     string `json:"state"`
	PublicIP  string `json:"public_ip,omitempty"`
	PrivateIP string `json:"private_ip,omitempty"`
}

// IP returns the best address for reaching the instance, preferring the
// public IP and falling back to the private one.
func (i InstanceInfo) IP() string {
	if i.PublicIP != "" {
		return i.PublicIP
	}
	return i.PrivateIP
}
