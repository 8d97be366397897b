// Package logscan extracts report rows from the text report written by the
// external image test runner.
//
// Two kinds of lines are recognized:
//
//	Failed (Comparing <candidate> to <baseline>, Failing pixels:<n>%
//	No baseline image (Comparing <candidate>
//
// Every other line is skipped. A line matches at most one pattern and rows
// are returned in file order. For missing baselines the scanner derives a
// fallback baseline from the alternate baseline set and compares against it
// when that file exists.
package logscan
