package stream

const (
	crcInitial    = 0xFFFF
	crcPolynomial = 0x1021
)

// CRC16 is CRC-16-CCITT (poly 0x1021, init 0xFFFF, no reflection).
func CRC16(data []byte) uint16 {
	crc := uint16(crcInitial)
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ crcPolynomial
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
