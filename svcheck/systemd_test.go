package svcheck

import (
	"context"
	"errors"
	"os/exec"
	"strconv"
	"testing"
)

// fakeExec records invocations and plays back canned results
type fakeExec struct {
	calls  [][]string
	out    string
	err    error
	outErr string // stdout to return alongside err
}

func (f *fakeExec) run(_ context.Context, name string, args ...string) (string, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	if f.err != nil {
		return f.outErr, f.err
	}
	return f.out, nil
}

func newTestClient(fake *fakeExec) *ClientSystemd {
	c := NewClientSystemd(WithSudo(false, ""))
	c.exec = fake.run
	return c
}

// exitError produces a real *exec.ExitError with the given exit code
func exitError(t *testing.T, code int) *exec.ExitError {
	t.Helper()
	err := exec.Command("sh", "-c", "exit "+strconv.Itoa(code)).Run()
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected ExitError, got %v", err)
	}
	return exitErr
}

func TestRestartInvokesSystemctl(t *testing.T) {
	fake := &fakeExec{}
	c := newTestClient(fake)

	if err := c.Restart(context.Background(), "nginx.service"); err != nil {
		t.Fatal(err)
	}

	if len(fake.calls) != 1 {
		t.Fatalf("got %d calls, want 1", len(fake.calls))
	}
	call := fake.calls[0]
	if call[0] != "systemctl" || call[1] != "restart" || call[2] != "nginx.service" {
		t.Errorf("call = %v, want systemctl restart nginx.service", call)
	}
}

func TestRestartWithSudo(t *testing.T) {
	fake := &fakeExec{}
	c := NewClientSystemd(WithSudo(true, "doas"))
	c.exec = fake.run

	if err := c.Restart(context.Background(), "sshd.service"); err != nil {
		t.Fatal(err)
	}

	call := fake.calls[0]
	if call[0] != "doas" || call[1] != "systemctl" || call[2] != "restart" {
		t.Errorf("call = %v, want doas systemctl restart ...", call)
	}
}

func TestStatusPassesOutputThroughOnExitError(t *testing.T) {
	// systemctl status exits nonzero for inactive units while still
	// printing the status text; the text must come through unmodified
	fake := &fakeExec{
		err:    exitError(t, 3),
		outErr: "* cups.service - CUPS\n   Active: inactive (dead)\n",
	}
	c := newTestClient(fake)

	out, err := c.Status(context.Background(), "cups.service")
	if err != nil {
		t.Fatal(err)
	}
	if out != fake.outErr {
		t.Errorf("output = %q, want pass-through", out)
	}
}

func TestStatusErrorWithoutOutputIsFatal(t *testing.T) {
	fake := &fakeExec{err: errors.New("exec: \"systemctl\": executable file not found")}
	c := newTestClient(fake)

	_, err := c.Status(context.Background(), "cups.service")
	if err == nil {
		t.Fatal("expected error")
	}
	var opErr *OpError
	if !errors.As(err, &opErr) || opErr.Op != OpStatus {
		t.Errorf("error = %v, want OpError with OpStatus", err)
	}
}

func TestShowParsesProperties(t *testing.T) {
	fake := &fakeExec{out: "MainPID=1234\nSlice=system.slice\nActiveState=active\n"}
	c := newTestClient(fake)

	props, err := c.Show(context.Background(), "nginx.service", "MainPID", "Slice", "ActiveState")
	if err != nil {
		t.Fatal(err)
	}

	if props["MainPID"] != "1234" {
		t.Errorf("MainPID = %q, want 1234", props["MainPID"])
	}
	if props["Slice"] != "system.slice" {
		t.Errorf("Slice = %q, want system.slice", props["Slice"])
	}
}

func TestMainPID(t *testing.T) {
	tests := []struct {
		name    string
		out     string
		wantPID int
		wantErr error
	}{
		{name: "running", out: "1234\n", wantPID: 1234},
		{name: "not running", out: "0\n", wantErr: ErrNoMainPID},
		{name: "empty", out: "", wantErr: ErrNoMainPID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(&fakeExec{out: tt.out})
			pid, err := c.MainPID(context.Background(), "foo.service")
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if pid != tt.wantPID {
				t.Errorf("pid = %d, want %d", pid, tt.wantPID)
			}
		})
	}
}

func TestIsActiveExitCode3IsInactive(t *testing.T) {
	fake := &fakeExec{err: exitError(t, 3), outErr: "inactive\n"}
	c := newTestClient(fake)

	active, err := c.IsActive(context.Background(), "cups.service")
	if err != nil {
		t.Fatal(err)
	}
	if active {
		t.Error("got active, want inactive")
	}
}

func TestListRunning(t *testing.T) {
	fake := &fakeExec{out: "dbus.service loaded active running D-Bus\nnginx.service loaded active running nginx\n"}
	c := newTestClient(fake)

	units, err := c.ListRunning(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(units) != 2 || units[0] != "dbus.service" || units[1] != "nginx.service" {
		t.Errorf("units = %v", units)
	}
}

func TestParseUnitList(t *testing.T) {
	tests := []struct {
		name string
		out  string
		want []string
	}{
		{
			name: "plain",
			out:  "a.service loaded active running A\nb.service loaded active running B\n",
			want: []string{"a.service", "b.service"},
		},
		{
			name: "bullet prefix",
			out:  "● failed.service loaded failed failed F\n",
			want: []string{"failed.service"},
		},
		{
			name: "empty",
			out:  "\n",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseUnitList(tt.out)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("unit %d = %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}
