package gate

// ShouldPass decides whether audio passes. Learn mode always passes so the
// player can hear what they are assigning; bypass overrides everything.
func ShouldPass(gateOpen bool, mode Mode, bypassed bool) bool {
	return bypassed || gateOpen || mode == MidiLearn
}

// Process copies interleaved stereo frames from in to out when s passes,
// and writes silence otherwise. A trailing odd sample is treated as a
// frame of its own. It never allocates.
func Process(s Snapshot, in, out []float32) {
	n := len(out)
	if len(in) < n {
		n = len(in)
	}
	pass := s.Pass()
	for i := 0; i < n; i += 2 {
		if pass {
			out[i] = in[i]
			if i+1 < n {
				out[i+1] = in[i+1]
			}
		} else {
			out[i] = 0
			if i+1 < n {
				out[i+1] = 0
			}
		}
	}
	for i := n; i < len(out); i++ {
		out[i] = 0
	}
}
