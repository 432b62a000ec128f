package main

/*------------------------------------------------------------------
 *
 * Purpose:	List and extract the files on an Acorn Atom or BBC
 *		Micro cassette recording.
 *
 *---------------------------------------------------------------*/

import (
	acorntape "github.com/doismellburning/acorntape/src"
)

func main() {
	acorntape.TapeDecodeMain()
}
