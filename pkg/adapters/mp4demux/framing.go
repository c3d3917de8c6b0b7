package mp4demux

// avccToAnnexB converts AVCC format (length-prefixed NALUs) to Annex B format (start code prefixed)
func avccToAnnexB(data []byte) []byte {
	var result []byte
	offset := 0

	for offset+4 <= len(data) {
		naluLen := int(data[offset])<<24 | int(data[offset+1])<<16 |
			int(data[offset+2])<<8 | int(data[offset+3])
		offset += 4

		if offset+naluLen > len(data) {
			break
		}

		result = append(result, 0, 0, 0, 1)
		result = append(result, data[offset:offset+naluLen]...)
		offset += naluLen
	}

	return result
}

var adtsSampleRates = []int{96000, 88200, 64000, 48000, 44100, 32000, 24000, 22050, 16000, 12000, 11025, 8000, 7350}

// adtsHeader returns the 7-byte ADTS header of an AAC-LC access unit of
// payloadLen bytes.
func adtsHeader(payloadLen, sampleRate, channels int) []byte {
	freqIndex := 4 // 44.1 kHz
	for i, rate := range adtsSampleRates {
		if rate == sampleRate {
			freqIndex = i
			break
		}
	}

	const profile = 1 // AAC LC, audio object type 2
	frameLen := payloadLen + 7

	return []byte{
		0xFF,
		0xF1, // MPEG-4, layer 0, no CRC
		byte(profile<<6 | freqIndex<<2 | (channels>>2)&0x1),
		byte((channels&0x3)<<6 | (frameLen>>11)&0x3),
		byte(frameLen >> 3),
		byte((frameLen&0x7)<<5 | 0x1F),
		0xFC,
	}
}
