package boodler

// Mixer implements the per-buffer note-queue walk and interleaved stereo
// accumulation. One Mixer is created per Engine and reused
// across buffers; its scratch slices grow as needed and are never shrunk,
// trading a little steady-state memory for zero per-buffer allocation once
// warmed up.
type Mixer struct {
	panNormalize bool
	maxRanges    int

	volRanges []fadeRange

	// Pan fade-range scratch. mono notes use only panRangesL/R (channel 0);
	// stereo-sample notes additionally use panRanges2L/R for channel 1. Each
	// slice holds at most one entry per note per buffer; they are reset to
	// length 0 (not reallocated) before each note.
	panRangesL  []fadeRange
	panRangesR  []fadeRange
	panRanges2L []fadeRange
	panRanges2R []fadeRange
}

// newMixer returns a Mixer. panNormalize selects the older, renormalizing
// point-source law for stereo samples when true.
func newMixer(panNormalize bool) *Mixer {
	return &Mixer{panNormalize: panNormalize, maxRanges: 4096}
}

// Generate mixes every active note in q into acc, an interleaved stereo
// accumulator of length 2*framesPerBuf, for the window
// [currentTime, currentTime+framesPerBuf). Notes that finish playing during
// the buffer are spliced out of q and destroyed.
func (mx *Mixer) Generate(q *NoteQueue, acc []float64, currentTime int64, framesPerBuf int) error {
	for i := range acc {
		acc[i] = 0
	}
	endTime := currentTime + int64(framesPerBuf)

	var prev *Note
	cur := q.head
	for cur != nil && cur.startTime < endTime {
		next := cur.next
		done, err := mx.mixNote(cur, acc, currentTime, endTime, framesPerBuf)
		if err != nil {
			return err
		}
		if done {
			if prev == nil {
				q.head = next
			} else {
				prev.next = next
			}
			if q.lastInsert == cur {
				q.lastInsert = prev
			}
			q.destroyNote(cur)
			cur = next
			continue
		}
		prev = cur
		cur = next
	}
	return nil
}

// mixNote folds cur's channel tree into the volume/pan scratch, then mixes
// one buffer's worth of its samples into acc via the mono or stereo inner
// loop. It reports whether the note finished playing.
func (mx *Mixer) mixNote(n *Note, acc []float64, currentTime, endTime int64, framesPerBuf int) (bool, error) {
	d := n.sample.loaded()
	if d == nil {
		// The sample was unloaded or errored out from under an in-flight
		// note; drop it rather than mix garbage.
		return true, nil
	}

	mx.volRanges = mx.volRanges[:0]
	mx.panRangesL = mx.panRangesL[:0]
	mx.panRangesR = mx.panRangesR[:0]
	mx.panRanges2L = mx.panRanges2L[:0]
	mx.panRanges2R = mx.panRanges2R[:0]

	panStart, panEnd := n.pan, n.pan
	volScale := 1.0
	bothPans := false

	if n.channel.Valid() {
		for ch := n.channel.Channel(); ch != nil; ch = ch.Parent() {
			ve := ch.VolumeEnvelope(currentTime)
			if ve.constantOver(currentTime, endTime) {
				v := ve.V1
				if ve.T0 >= endTime {
					v = ve.V0
				}
				volScale *= v
			} else {
				if len(mx.volRanges) >= mx.maxRanges {
					return false, ErrAllocation
				}
				mx.volRanges = append(mx.volRanges, fadeRange{
					t0: float64(ve.T0), t1: float64(ve.T1), v0: ve.V0, v1: ve.V1,
				})
			}

			pe := ch.PanEnvelope(currentTime)
			if pe.constantOver(currentTime, endTime) {
				p := pe.P1
				if pe.T0 >= endTime {
					p = pe.P0
				}
				panStart = p.Compose(panStart)
				panEnd = p.Compose(panEnd)
			} else {
				bothPans = true
				p0 := lerpTransform(pe.P0, pe.P1, pe.frac(currentTime))
				p1 := lerpTransform(pe.P0, pe.P1, pe.frac(endTime))
				panStart = p0.Compose(panStart)
				panEnd = p1.Compose(panEnd)
			}
		}
	}
	volScale *= n.volume

	step := computeStep(d.frameRateRatio, n.pitch)
	start := 0
	if n.startTime > currentTime {
		start = int(n.startTime - currentTime)
	}

	if d.numChannels == 1 {
		return mx.mixMono(n, d, acc, currentTime, endTime, framesPerBuf, start, step, volScale, panStart, panEnd, bothPans), nil
	}
	return mx.mixStereo(n, d, acc, currentTime, endTime, framesPerBuf, start, step, volScale, panStart, panEnd, bothPans), nil
}

// compositeAt evaluates the product of every active channel-volume range at
// time t; the pan-driven gain is folded in separately by the caller.
func (mx *Mixer) compositeAt(t float64) float64 {
	v := 1.0
	for _, rg := range mx.volRanges {
		v *= rg.valueAt(t)
	}
	return v
}

// mixMono mixes a mono-sample note into acc using the point-source law
// once per frame.
func (mx *Mixer) mixMono(n *Note, d *sampleData, acc []float64, currentTime, endTime int64, framesPerBuf, start int, step uint32, volScale float64, panStart, panEnd Transform, bothPans bool) bool {
	gl0, gr0 := panLaw(panStart.ShiftX, panStart.ShiftY)
	if bothPans {
		gl1, gr1 := panLaw(panEnd.ShiftX, panEnd.ShiftY)
		mx.panRangesL = append(mx.panRangesL, fadeRange{float64(currentTime), float64(endTime), gl0, gl1})
		mx.panRangesR = append(mx.panRangesR, fadeRange{float64(currentTime), float64(endTime), gr0, gr1})
	}

	framePos, frameFrac, repsLeft := n.framePos, n.frameFrac, n.repsLeft
	deleted := false

	for i := start; i < framesPerBuf; i++ {
		s0 := d.data[framePos]
		nextPos := framePos + 1
		if d.hasLoop && nextPos == d.loopEnd && repsLeft > 0 {
			nextPos = d.loopStart
		}
		var s1 int16
		if nextPos < d.numFrames {
			s1 = d.data[nextPos]
		}
		frac := float64(frameFrac) / 0x10000
		r := float64(s0) + (float64(s1)-float64(s0))*frac

		t := float64(currentTime + int64(i))
		gl, gr := gl0, gr0
		if bothPans {
			gl = mx.panRangesL[0].valueAt(t)
			gr = mx.panRangesR[0].valueAt(t)
		}
		composite := volScale * mx.compositeAt(t)

		acc[2*i] += r * gl * composite
		acc[2*i+1] += r * gr * composite

		frameFrac += step
		framePos += int64(frameFrac >> 16)
		frameFrac &= 0xFFFF
		for repsLeft > 0 && framePos >= d.loopEnd {
			framePos -= d.loopLen
			repsLeft--
		}
		if framePos+1 >= d.numFrames && repsLeft == 0 {
			deleted = true
			break
		}
	}

	n.framePos, n.frameFrac, n.repsLeft = framePos, frameFrac, repsLeft
	return deleted
}

// mixStereo mixes a stereo-sample note into acc using the point-source law
// twice per frame, for input channels placed at shift_x∓scale_x.
func (mx *Mixer) mixStereo(n *Note, d *sampleData, acc []float64, currentTime, endTime int64, framesPerBuf, start int, step uint32, volScale float64, panStart, panEnd Transform, bothPans bool) bool {
	gl0a, gr0a := panLaw(panStart.ShiftX-panStart.ScaleX, panStart.ShiftY)
	gl0b, gr0b := panLaw(panStart.ShiftX+panStart.ScaleX, panStart.ShiftY)
	if mx.panNormalize {
		gl0a, gr0a, gl0b, gr0b = normalizeStereoPan(gl0a, gr0a, gl0b, gr0b)
	}

	if bothPans {
		gl1a, gr1a := panLaw(panEnd.ShiftX-panEnd.ScaleX, panEnd.ShiftY)
		gl1b, gr1b := panLaw(panEnd.ShiftX+panEnd.ScaleX, panEnd.ShiftY)
		if mx.panNormalize {
			gl1a, gr1a, gl1b, gr1b = normalizeStereoPan(gl1a, gr1a, gl1b, gr1b)
		}
		mx.panRangesL = append(mx.panRangesL, fadeRange{float64(currentTime), float64(endTime), gl0a, gl1a})
		mx.panRangesR = append(mx.panRangesR, fadeRange{float64(currentTime), float64(endTime), gr0a, gr1a})
		mx.panRanges2L = append(mx.panRanges2L, fadeRange{float64(currentTime), float64(endTime), gl0b, gl1b})
		mx.panRanges2R = append(mx.panRanges2R, fadeRange{float64(currentTime), float64(endTime), gr0b, gr1b})
	}

	framePos, frameFrac, repsLeft := n.framePos, n.frameFrac, n.repsLeft
	deleted := false

	for i := start; i < framesPerBuf; i++ {
		c0cur, c1cur := d.data[2*framePos], d.data[2*framePos+1]
		nextPos := framePos + 1
		if d.hasLoop && nextPos == d.loopEnd && repsLeft > 0 {
			nextPos = d.loopStart
		}
		var c0next, c1next int16
		if nextPos < d.numFrames {
			c0next, c1next = d.data[2*nextPos], d.data[2*nextPos+1]
		}
		frac := float64(frameFrac) / 0x10000
		r0 := float64(c0cur) + (float64(c0next)-float64(c0cur))*frac
		r1 := float64(c1cur) + (float64(c1next)-float64(c1cur))*frac

		t := float64(currentTime + int64(i))
		gla, gra, glb, grb := gl0a, gr0a, gl0b, gr0b
		if bothPans {
			gla = mx.panRangesL[0].valueAt(t)
			gra = mx.panRangesR[0].valueAt(t)
			glb = mx.panRanges2L[0].valueAt(t)
			grb = mx.panRanges2R[0].valueAt(t)
		}
		composite := volScale * mx.compositeAt(t)

		acc[2*i] += (r0*gla + r1*glb) * composite
		acc[2*i+1] += (r0*gra + r1*grb) * composite

		frameFrac += step
		framePos += int64(frameFrac >> 16)
		frameFrac &= 0xFFFF
		for repsLeft > 0 && framePos >= d.loopEnd {
			framePos -= d.loopLen
			repsLeft--
		}
		if framePos+1 >= d.numFrames && repsLeft == 0 {
			deleted = true
			break
		}
	}

	n.framePos, n.frameFrac, n.repsLeft = framePos, frameFrac, repsLeft
	return deleted
}
