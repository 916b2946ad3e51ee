package crash

import "syscall"

// Name returns the conventional short name of a signal ("SIGSEGV").
// Unknown signals render as "signal <n>".
func Name(sig syscall.Signal) string {
	if n, ok := names[sig]; ok {
		return n
	}
	return "signal " + itoa(int(sig))
}

// Desc returns a one-line human description of a signal.
func Desc(sig syscall.Signal) string {
	if d, ok := descs[sig]; ok {
		return d
	}
	return sig.String()
}

var names = map[syscall.Signal]string{
	syscall.SIGABRT: "SIGABRT",
	syscall.SIGBUS:  "SIGBUS",
	syscall.SIGFPE:  "SIGFPE",
	syscall.SIGHUP:  "SIGHUP",
	syscall.SIGILL:  "SIGILL",
	syscall.SIGINT:  "SIGINT",
	syscall.SIGKILL: "SIGKILL",
	syscall.SIGPIPE: "SIGPIPE",
	syscall.SIGQUIT: "SIGQUIT",
	syscall.SIGSEGV: "SIGSEGV",
	syscall.SIGTERM: "SIGTERM",
	syscall.SIGTRAP: "SIGTRAP",
}

var descs = map[syscall.Signal]string{
	syscall.SIGABRT: "abort() called",
	syscall.SIGBUS:  "bus error, misaligned or nonexistent physical address",
	syscall.SIGFPE:  "erroneous arithmetic operation",
	syscall.SIGHUP:  "controlling terminal closed",
	syscall.SIGILL:  "illegal instruction",
	syscall.SIGINT:  "interactive interrupt",
	syscall.SIGKILL: "killed",
	syscall.SIGPIPE: "write to a pipe with no reader",
	syscall.SIGQUIT: "interactive quit",
	syscall.SIGSEGV: "invalid memory reference",
	syscall.SIGTERM: "termination request",
	syscall.SIGTRAP: "trace/breakpoint trap",
}

func itoa(v int) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [8]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
