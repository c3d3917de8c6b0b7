package mp4demux

import (
	"fmt"

	"github.com/Eyevinn/mp4ff/mp4"
)

// sampleIsNonSync is the sample_is_non_sync_sample bit of ISO/IEC 14496-12
// sample flags.
const sampleIsNonSync = 0x00010000

// pcmBlockSamples is the number of PCM sample frames grouped into one packet.
const pcmBlockSamples = 1024

// sample locates one packet of a track. Progressive files are read through
// offset and size; fragment payloads are kept in data.
type sample struct {
	dts    uint64
	pts    int64
	dur    uint32
	sync   bool
	offset uint64
	size   uint32
	data   []byte
	count  int // Sample table entries covered by this packet
}

// progressiveSamples walks the sample table of a moov track.
func progressiveSamples(stbl *mp4.StblBox) ([]sample, error) {
	if stbl.Stsz == nil || stbl.Stts == nil || stbl.Stsc == nil {
		return nil, fmt.Errorf("incomplete sample table")
	}

	n := stbl.Stsz.SampleNumber
	syncSamples := syncSet(stbl)

	samples := make([]sample, 0, n)
	prevChunk := -1
	var next uint64

	for nr := uint32(1); nr <= n; nr++ {
		chunkNr, _, err := stbl.Stsc.ChunkNrFromSampleNr(int(nr))
		if err != nil {
			return nil, fmt.Errorf("sample %d: get chunk nr: %w", nr, err)
		}
		if chunkNr != prevChunk {
			off, err := chunkOffset(stbl, chunkNr)
			if err != nil {
				return nil, fmt.Errorf("sample %d: %w", nr, err)
			}
			next = off
			prevChunk = chunkNr
		}

		size := stbl.Stsz.GetSampleSize(int(nr))
		dts, dur := stbl.Stts.GetDecodeTime(nr)
		pts := int64(dts)
		if stbl.Ctts != nil {
			pts += int64(stbl.Ctts.GetCompositionTimeOffset(nr))
		}

		samples = append(samples, sample{
			dts:    dts,
			pts:    pts,
			dur:    dur,
			sync:   syncSamples == nil || syncSamples[nr],
			offset: next,
			size:   size,
			count:  1,
		})
		next += uint64(size)
	}

	return samples, nil
}

// syncSet returns the sync sample numbers, or nil when every sample is a
// sync sample.
func syncSet(stbl *mp4.StblBox) map[uint32]bool {
	if stbl.Stss == nil {
		return nil
	}
	set := make(map[uint32]bool, len(stbl.Stss.SampleNumber))
	for _, nr := range stbl.Stss.SampleNumber {
		set[nr] = true
	}
	return set
}

func chunkOffset(stbl *mp4.StblBox, chunkNr int) (uint64, error) {
	switch {
	case stbl.Stco != nil:
		off, err := stbl.Stco.GetOffset(chunkNr)
		if err != nil {
			return 0, fmt.Errorf("get chunk offset: %w", err)
		}
		return off, nil
	case stbl.Co64 != nil:
		if chunkNr < 1 || chunkNr > len(stbl.Co64.ChunkOffset) {
			return 0, fmt.Errorf("chunk nr %d out of range", chunkNr)
		}
		return stbl.Co64.ChunkOffset[chunkNr-1], nil
	}
	return 0, fmt.Errorf("no stco or co64 box")
}

// addFragmentSamples collects the samples of every fragment into the
// matching tracks.
func addFragmentSamples(mp4File *mp4.File, tracks []*Track) error {
	byID := make(map[uint32]*Track, len(tracks))
	for _, t := range tracks {
		byID[t.ID] = t
	}

	trexs := make(map[uint32]*mp4.TrexBox)
	if mp4File.Init != nil && mp4File.Init.Moov != nil && mp4File.Init.Moov.Mvex != nil {
		for _, trex := range mp4File.Init.Moov.Mvex.Trexs {
			trexs[trex.TrackID] = trex
		}
	}

	fragNr := 0
	for _, seg := range mp4File.Segments {
		for _, frag := range seg.Fragments {
			if frag.Moof == nil || len(frag.Moof.Trafs) == 0 {
				continue
			}
			fragNr++
			if len(frag.Moof.Trafs) > 1 {
				return fmt.Errorf("fragment %d carries %d tracks, only one track per fragment is supported",
					fragNr, len(frag.Moof.Trafs))
			}

			traf := frag.Moof.Trafs[0]
			t, ok := byID[traf.Tfhd.TrackID]
			if !ok {
				continue
			}

			full, err := frag.GetFullSamples(trexs[t.ID])
			if err != nil {
				return fmt.Errorf("track %d: get samples: %w", t.ID, err)
			}
			for _, fs := range full {
				t.samples = append(t.samples, sample{
					dts:   fs.DecodeTime,
					pts:   int64(fs.DecodeTime) + int64(fs.CompositionTimeOffset),
					dur:   fs.Dur,
					sync:  fs.Flags&sampleIsNonSync == 0,
					size:  uint32(len(fs.Data)),
					data:  fs.Data,
					count: 1,
				})
			}
		}
	}
	return nil
}

// coalescePCM merges runs of contiguous PCM sample frames into packets of at
// most block frames. PCM tracks store one sample table entry per sample
// frame, which would otherwise mean one packet per sample.
func coalescePCM(samples []sample, block int) []sample {
	if len(samples) == 0 {
		return samples
	}

	out := make([]sample, 0, len(samples)/block+1)
	cur := samples[0]
	for _, s := range samples[1:] {
		contiguous := s.data == nil && cur.data == nil && s.offset == cur.offset+uint64(cur.size)
		if contiguous && cur.count < block {
			cur.size += s.size
			cur.dur += s.dur
			cur.count += s.count
			continue
		}
		out = append(out, cur)
		cur = s
	}
	return append(out, cur)
}
