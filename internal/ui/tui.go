// ABOUTME: TUI initialization and control
// ABOUTME: Wraps the bubbletea program and forwards listener updates into it
package ui

import (
	"github.com/Resonate-Protocol/onair-go/pkg/archive"
	"github.com/Resonate-Protocol/onair-go/pkg/onair"
	tea "github.com/charmbracelet/bubbletea"
)

// Options configures the TUI
type Options struct {
	// Controller is the listener (required)
	Controller Controller

	// Archive enables the archive list (optional)
	Archive Archive

	// RecordingURL renders the link of the selected recording (optional)
	RecordingURL func(filename string) string

	// Volume and Muted are the initial playback settings. VolumeSupported
	// hides the volume controls when false.
	Volume          int
	Muted           bool
	VolumeSupported bool
}

// NewModel creates a new TUI model
func NewModel(opts Options) Model {
	return Model{
		ctrl:            opts.Controller,
		archive:         opts.Archive,
		recordingURL:    opts.RecordingURL,
		volume:          opts.Volume,
		muted:           opts.Muted,
		volumeSupported: opts.VolumeSupported,
		view:            archive.View{Sort: archive.DefaultSort},
	}
}

// TUI runs the listener interface
type TUI struct {
	program *tea.Program
	updates chan tea.Msg
	done    chan struct{}
}

// New creates the TUI program
func New(opts Options) *TUI {
	t := &TUI{
		program: tea.NewProgram(NewModel(opts), tea.WithAltScreen()),
		updates: make(chan tea.Msg, 64),
		done:    make(chan struct{}),
	}

	go func() {
		for {
			select {
			case msg := <-t.updates:
				t.program.Send(msg)
			case <-t.done:
				return
			}
		}
	}()

	return t
}

// Run blocks until the user quits
func (t *TUI) Run() error {
	defer close(t.done)
	_, err := t.program.Run()
	return err
}

// UpdateStatus sends a status update without blocking. The model also polls
// the controller every second, so a dropped update is only delayed.
func (t *TUI) UpdateStatus(status onair.Status) {
	t.send(StatusMsg(status))
}

// UpdateArchive sends an archive update without blocking
func (t *TUI) UpdateArchive(view archive.View) {
	t.send(ArchiveMsg(view))
}

// Quit stops the program
func (t *TUI) Quit() {
	t.program.Quit()
}

func (t *TUI) send(msg tea.Msg) {
	select {
	case t.updates <- msg:
	default:
	}
}
