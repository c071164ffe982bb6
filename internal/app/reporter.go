package app

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"clusterdash/internal/color"
	"clusterdash/internal/protocol"
	"clusterdash/internal/syncchannel"
	"clusterdash/internal/template"
)

// reporter prints what the session applies, one line per event, for the
// headless mode.
type reporter struct {
	mu  sync.Mutex
	out io.Writer
	log template.Descriptor
	now func() time.Time
}

func newReporter(out io.Writer, logTemplate string) *reporter {
	return &reporter{out: out, log: template.Parse(logTemplate), now: time.Now}
}

func (r *reporter) printf(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, "%s "+format+"\n", append([]any{r.now().Format("15:04:05")}, args...)...)
}

func (r *reporter) ChannelChanged(address protocol.NodeAddress, state syncchannel.State) {
	name := state.String()
	r.printf("channel %s %s", address, color.StateStyle(name).Render(name))
}

func (r *reporter) MessageApplied(msg protocol.Inbound, source protocol.NodeAddress) {
	switch m := msg.(type) {
	case protocol.ClusterDetails:
		refs := m.Snapshot.Nodes()
		r.printf("snapshot from %s: %d clusters, %d nodes, processed %s", source, len(m.Snapshot.Clusters), len(refs), m.Snapshot.ProcessedAt)
		for _, ref := range refs {
			r.printf("  %s %s runtimes=%s", ref.ClusterName, ref.Node.Address(), strings.Join(ref.Node.SupportedRuntimes, ","))
		}
	case protocol.LogMessage:
		r.printf("[%s] %s", source, template.Render(r.log, m.Record.Fields()))
	case protocol.ExecutionResult:
		status := color.SuccessStyle
		if m.Result.StatusCode != 0 {
			status = color.ErrorStyle
		}
		r.printf("result from %s %s: %s", source, status.Render(fmt.Sprintf("status %d", m.Result.StatusCode)), template.Sanitize(m.Result.Output))
	}
}
