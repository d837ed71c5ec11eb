/*
Package backup implements the recipient backup protobuf serialisation code.

A backup stream is a BackupInfo record followed by any number of Frame
records. Every record is prefixed with its length as a varint, so that a
reader can process the stream one frame at a time without loading all
messages into memory. The stream is gzip compressed when stored.

The messages are encoded and decoded with hand-written code on top of
csproto, in the same way for every message:

  - field numbers are declared as constants next to the type
  - Marshal validates the message and writes it into a pbwire.Buffer
  - Unmarshal loops over the tags and skips unknown fields

Only the contact variant of a recipient frame is handled. Other frame items
and other recipient destinations are skipped on decode and left nil, so that
a caller can report them as unhandled.
*/
package backup
