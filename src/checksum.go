package acorntape

/*-------------------------------------------------------------
 *
 * Purpose:	Block checksums.
 *
 *		Atom	One byte, sum of everything from the first
 *			preamble byte to the last data byte, mod 256.
 *
 *		BBC	CRC-16/XMODEM, polynomial 0x1021, initial value
 *			zero, no reflection.  Sent high byte first.
 *			One over the header and another over the data.
 *
 *--------------------------------------------------------------*/

var crc16_table [256]uint16

func init() {
	for i := range 256 {
		var crc = uint16(i) << 8
		for range 8 {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}

		crc16_table[i] = crc
	}
}

/*-------------------------------------------------------------
 *
 * Name:	crc16_update
 *
 * Purpose:	Continue a CRC-16/XMODEM over more bytes.
 *
 * Inputs:	crc	- Value so far, 0 to start.
 *
 *		data	- Bytes to add.
 *
 *--------------------------------------------------------------*/

func crc16_update(crc uint16, data []byte) uint16 {
	for _, b := range data {
		crc = crc<<8 ^ crc16_table[byte(crc>>8)^b]
	}

	return crc
}

func CRC16XModem(data []byte) uint16 {
	return crc16_update(0, data)
}

func sum8_update(sum byte, data []byte) byte {
	for _, b := range data {
		sum += b
	}

	return sum
}

func AtomChecksum(parts ...[]byte) byte {
	var sum byte
	for _, p := range parts {
		sum = sum8_update(sum, p)
	}

	return sum
}
