// Package outputlog is the capture file format of cmdrunner: several streams
// of a command run multiplexed into one file, so the run can be replayed
// through the rules later.
//
// # Format
//
// Each chunk is written as
//
//	stream timestamp length: content\n
//
// The separator newline is always written, even when content already ends
// with a newline, so a reader never has to guess where a chunk ends.
//
// # Fields
//
//   - stream: matches [a-zA-Z0-9_./-]{1,64}. cmdrunner writes stdout and
//     stderr for command output, command for the command line of each run
//     and exit for the exit status once the command has finished.
//   - timestamp: UTC, 2006-01-02T15:04:05.000000000Z. Readers accept any
//     RFC 3339 timestamp.
//   - length: byte length of content.
//   - content: exactly length bytes. It may contain newlines and binary data.
//
// # Example
//
//	command 2025-01-07T12:00:00.000000000Z 6: dir /s
//	stdout 2025-01-07T12:00:00.120000000Z 40:  Directory of D:\projects\CommandRunner
//
//	exit 2025-01-07T12:00:01.000000000Z 1: 0
//
// Output lines are recorded with their trailing newline, which is why the
// stdout chunk above is followed by an empty line.
package outputlog
