// Package command drives the command dialog: it gathers a command for one
// node, submits it over that node's channel and shows the latest result.
package command

import (
	"errors"
	"fmt"
	"time"

	"clusterdash/internal/protocol"
	"clusterdash/pkg/logging"
)

const subsystem = "CommandDialog"

// ErrDialogClosed is returned by form operations while the dialog is closed.
var ErrDialogClosed = errors.New("command dialog is not open")

// Sender delivers a command over the channel for address.
type Sender interface {
	SendCommand(address protocol.NodeAddress, req protocol.CommandRequest, correlationID string) error
}

// Form is the editable state of the dialog.
type Form struct {
	TargetHostname string
	TargetPort     int
	// Channel is the pool entry the command is sent over.
	Channel     protocol.NodeAddress
	Runtimes    []string
	Runtime     string
	Command     string
	RepeatTimes int
}

// Target returns the node the form addresses, host:communicationPort.
func (f Form) Target() protocol.NodeAddress {
	return protocol.NewNodeAddress(f.TargetHostname, f.TargetPort)
}

// Output is the result shown in the dialog.
type Output struct {
	StatusCode int
	Output     string
	Token      string
	ReceivedAt time.Time
}

// Dialog is the command dialog controller. It is driven from the
// application's event loop and is not safe for concurrent use.
type Dialog struct {
	sender  Sender
	tracker *Tracker
	strict  bool

	open    bool
	form    Form
	pending string
	output  *Output
}

// NewDialog creates a closed dialog. With strict set, only results that
// resolve the dialog's own request are shown; otherwise the most recent
// result wins.
func NewDialog(sender Sender, tracker *Tracker, strict bool) *Dialog {
	return &Dialog{sender: sender, tracker: tracker, strict: strict}
}

// ShowFor fills the target and runtime list from node and opens the dialog.
func (d *Dialog) ShowFor(node protocol.NodeDescriptor) {
	d.reset()
	d.form = Form{
		TargetHostname: node.Hostname,
		TargetPort:     node.CommunicationPort,
		Channel:        node.WebAddress(),
		Runtimes:       append([]string(nil), node.SupportedRuntimes...),
	}
	if len(node.SupportedRuntimes) > 0 {
		d.form.Runtime = node.SupportedRuntimes[0]
	}
	d.open = true
	logging.Debug(subsystem, "Opened for %s", d.form.Target())
}

// IsOpen reports whether the dialog is showing.
func (d *Dialog) IsOpen() bool { return d.open }

// Form returns a copy of the form.
func (d *Dialog) Form() Form {
	f := d.form
	f.Runtimes = append([]string(nil), d.form.Runtimes...)
	return f
}

// SetCommand sets the command text.
func (d *Dialog) SetCommand(command string) {
	d.form.Command = command
}

// SetRepeatTimes sets the repeat count; negative values count as 0.
func (d *Dialog) SetRepeatTimes(n int) {
	if n < 0 {
		n = 0
	}
	d.form.RepeatTimes = n
}

// SelectRuntime picks one of the node's runtimes.
func (d *Dialog) SelectRuntime(name string) error {
	for _, r := range d.form.Runtimes {
		if r == name {
			d.form.Runtime = name
			return nil
		}
	}
	return fmt.Errorf("runtime %q is not supported by %s", name, d.form.Target())
}

// CycleRuntime moves the runtime selection by delta, wrapping around.
func (d *Dialog) CycleRuntime(delta int) {
	n := len(d.form.Runtimes)
	if n == 0 {
		return
	}
	i := 0
	for j, r := range d.form.Runtimes {
		if r == d.form.Runtime {
			i = j
			break
		}
	}
	d.form.Runtime = d.form.Runtimes[((i+delta)%n+n)%n]
}

// Request builds the CommandRequest for the current form values.
func (d *Dialog) Request() protocol.CommandRequest {
	return protocol.CommandRequest{
		TargetHostname: d.form.TargetHostname,
		TargetPort:     d.form.TargetPort,
		RuntimeName:    d.form.Runtime,
		Input: protocol.CommandInput{
			Command:             d.form.Command,
			PositionalArguments: []string{},
			Options:             map[string]string{},
		},
		RepeatTimes: d.form.RepeatTimes,
		RequestedAt: time.Now(),
	}
}

// Submit sends the form's request over the target node's channel and
// returns its correlation token. When the channel is not OPEN nothing is
// sent and the error wraps syncchannel.ErrNotConnected.
func (d *Dialog) Submit() (string, error) {
	if !d.open {
		return "", ErrDialogClosed
	}

	req := d.Request()
	p := d.tracker.Track(d.form.Channel, req)
	if err := d.sender.SendCommand(d.form.Channel, req, p.Token); err != nil {
		d.tracker.Forget(p.Token)
		logging.Warn(subsystem, "Not sending %q to %s: %v", req.Input.Command, d.form.Target(), err)
		return "", err
	}

	d.pending = p.Token
	logging.Info(subsystem, "Sent %q to %s (%s)", req.Input.Command, d.form.Target(), p.Token)
	return p.Token, nil
}

// Pending returns the token of the dialog's latest submitted request.
func (d *Dialog) Pending() string { return d.pending }

// UpdateOutput shows result if the dialog is open and, in strict mode, if
// token is the dialog's pending request. It reports whether the output
// changed. Results for a closed dialog are discarded.
func (d *Dialog) UpdateOutput(result protocol.CommandResult, token string) bool {
	if !d.open {
		return false
	}
	if d.strict && (token == "" || token != d.pending) {
		logging.Debug(subsystem, "Ignoring result %q for another request", token)
		return false
	}
	d.output = &Output{
		StatusCode: result.StatusCode,
		Output:     result.Output,
		Token:      token,
		ReceivedAt: time.Now(),
	}
	if token == d.pending {
		d.pending = ""
	}
	return true
}

// Output returns the displayed result, if any.
func (d *Dialog) Output() (Output, bool) {
	if d.output == nil {
		return Output{}, false
	}
	return *d.output, true
}

// Close hides the dialog, resets the form and clears the output.
func (d *Dialog) Close() {
	d.reset()
}

func (d *Dialog) reset() {
	d.open = false
	d.form = Form{}
	d.pending = ""
	d.output = nil
}
