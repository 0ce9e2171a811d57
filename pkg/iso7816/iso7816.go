/*
Package iso7816 models the file storage of ISO/IEC 7816 cards as recorded in a dump.

Contactless transit cards that are not MIFARE Classic keep their data in applications selected by AID, each exposing elementary files made of numbered records. This package holds that view once it has been read; talking to a reader is left to the tool that produced the dump.

# Structure

  - Card: the list of applications found on the card.
  - Application: the AID, the FCI returned by SELECT and the files read from it.
  - File: the records of one elementary file, or the status word explaining why it could not be read.

# Status Words

Every file carries the 2-byte Status Word (SW) the card answered with.
  - 0x9000: Success (OK).
  - 0x6982: Security status not satisfied (the file needs keys the reader did not have).
  - 0x6A82: File or application not found.
  - 0x6A83: Record not found.

# Usage Example: Reading a Record

	app, ok := card.Application(aid)
	if !ok {
		return errors.New("application not on card")
	}
	rec, err := app.Record(0x2001, 1)
	if errors.Is(err, iso7816.ErrFileUnreadable) {
		fmt.Println(err) // "file unreadable: file 2001: [6982] Security status not satisfied"
		return nil
	}
	fmt.Printf("%X\n", rec)
*/
package iso7816
