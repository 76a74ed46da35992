package player

// Player is the capability surface of a local media element. Position and
// duration are seconds. Duration is unknown (zero) and Ready is false
// until the loaded source's metadata has arrived; Play on an unready
// player is an error the sync layer must avoid by waiting.
type Player interface {
	Load(url string)
	Play() error
	Pause()
	Seek(position float64)
	Position() float64
	Duration() float64
	Ready() bool
	Playing() bool
	OnEnded(fn func())
}
