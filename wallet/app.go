package wallet

import "sync"

// Screen IDs of the wallet application.
const (
	ScreenWallet      = "wallet"
	ScreenTokenDetail = "token-detail"
	ScreenSend        = "send"
	ScreenReceive     = "receive"
	ScreenSettings    = "settings"
)

// App is an in-process host: it exposes the navigation listener API and the
// host callbacks, and records what it was asked to show. The command's
// offline mode and the tests drive it; a live page provides its own.
type App struct {
	mu        sync.Mutex
	current   string
	listeners map[int]func(from, to string)
	nextID    int
	toasts    []string
	calls     []string
	// Render, if set, runs after every navigation with the destination
	// screen, before listeners are notified.
	Render func(to string)
}

// NewApp creates an App showing initial.
func NewApp(initial string) *App {
	return &App{current: initial, listeners: make(map[int]func(from, to string))}
}

// OnNavigate registers a navigation listener.
func (a *App) OnNavigate(fn func(from, to string)) func() {
	a.mu.Lock()
	a.nextID++
	id := a.nextID
	a.listeners[id] = fn
	a.mu.Unlock()
	return func() {
		a.mu.Lock()
		delete(a.listeners, id)
		a.mu.Unlock()
	}
}

// NavigateTo switches screens and notifies listeners.
func (a *App) NavigateTo(to string) {
	a.mu.Lock()
	from := a.current
	a.current = to
	fns := make([]func(from, to string), 0, len(a.listeners))
	for id := 1; id <= a.nextID; id++ {
		if fn, ok := a.listeners[id]; ok {
			fns = append(fns, fn)
		}
	}
	render := a.Render
	a.mu.Unlock()

	if render != nil {
		render(to)
	}
	for _, fn := range fns {
		fn(from, to)
	}
}

// Current returns the displayed screen.
func (a *App) Current() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

func (a *App) ShowToast(msg string) {
	a.mu.Lock()
	a.toasts = append(a.toasts, msg)
	a.mu.Unlock()
}

func (a *App) ShowSendScreen(tokenID string) {
	a.record("send:" + tokenID)
	a.NavigateTo(ScreenSend)
}

func (a *App) ShowReceiveScreen(tokenID string) {
	a.record("receive:" + tokenID)
	a.NavigateTo(ScreenReceive)
}

func (a *App) record(call string) {
	a.mu.Lock()
	a.calls = append(a.calls, call)
	a.mu.Unlock()
}

// Toasts returns every toast shown so far.
func (a *App) Toasts() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.toasts...)
}

// Calls returns the send/receive calls made so far, as "action:tokenID".
func (a *App) Calls() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.calls...)
}
