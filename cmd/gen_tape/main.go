package main

/*------------------------------------------------------------------
 *
 * Purpose:	Make a cassette recording of a binary file, for
 *		testing tapedecode.
 *
 *---------------------------------------------------------------*/

import (
	acorntape "github.com/doismellburning/acorntape/src"
)

func main() {
	acorntape.GenTapeMain()
}
