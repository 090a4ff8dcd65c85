package interfaces

// Service defines the lifecycle methods every kind of daemon interface must
// be compliant with.
type Service interface {
	Start() error
	Stop()
}
