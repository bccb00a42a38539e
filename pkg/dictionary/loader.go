package dictionary

import (
	"bufio"
	"encoding/binary"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

// wordBufferPool holds scratch buffers for binary word records
var wordBufferPool = sync.Pool{
	New: func() any {
		buf := make([]byte, 64)
		return &buf
	},
}

// LoadPath reads entries from a dictionary file, or from every recognized
// file of a directory in name order.
func LoadPath(path string) ([]Entry, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat dictionary path %s: %w", path, err)
	}
	if !info.IsDir() {
		return LoadFile(path)
	}

	dirEntries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dictionary dir %s: %w", path, err)
	}

	var names []string
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(de.Name()))
		if ext == ".csv" || ext == ".txt" || ext == ".bin" {
			names = append(names, de.Name())
		}
	}
	slices.Sort(names)
	if len(names) == 0 {
		return nil, fmt.Errorf("no dictionary files found in %s", path)
	}

	var all []Entry
	for _, name := range names {
		entries, err := LoadFile(filepath.Join(path, name))
		if err != nil {
			return nil, err
		}
		all = append(all, entries...)
	}
	log.Debugf("Loaded %d entries from %d files in %s", len(all), len(names), path)
	return all, nil
}

// LoadFile reads entries from a single dictionary file.
func LoadFile(filename string) ([]Entry, error) {
	format, err := DetectFileFormat(filename)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open dictionary %s: %w", filename, err)
	}
	defer file.Close()

	var entries []Entry
	switch format {
	case FormatCSV:
		entries, err = ReadCSV(file)
	case FormatText:
		entries, err = ReadText(file)
	case FormatBinary:
		entries, err = ReadBinary(bufio.NewReader(file))
	default:
		err = fmt.Errorf("unsupported format %v", format)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}

	log.Debugf("Loaded %d entries from %s (%s)", len(entries), filename, format)
	return entries, nil
}

// ReadCSV parses "word,count" rows. The first row is a header; rows with
// fewer than two columns and blank words are skipped.
func ReadCSV(r io.Reader) ([]Entry, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var entries []Entry
	for line := 1; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if line == 1 || len(record) < 2 {
			continue
		}

		word := strings.TrimSpace(record[0])
		if word == "" {
			continue
		}
		weight, err := parseWeight(record[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		entries = append(entries, Entry{Term: word, Weight: weight})
	}
	return entries, nil
}

// ReadText parses one "word [count]" pair per line. A missing count means
// weight 1; blank lines and lines starting with '#' are ignored.
func ReadText(r io.Reader) ([]Entry, error) {
	scanner := bufio.NewScanner(r)

	var entries []Entry
	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		fields := strings.Fields(text)
		weight := 1
		if len(fields) > 1 {
			w, err := parseWeight(fields[len(fields)-1])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			weight = w
			fields = fields[:len(fields)-1]
		}
		entries = append(entries, Entry{Term: strings.Join(fields, " "), Weight: weight})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// ReadBinary parses the binary layout:
// int32 count, then count times (uint16 length, word bytes, uint32 frequency),
// all little-endian.
func ReadBinary(r io.Reader) ([]Entry, error) {
	var total int32
	if err := binary.Read(r, binary.LittleEndian, &total); err != nil {
		return nil, fmt.Errorf("reading entry count: %w", err)
	}
	if total < 0 {
		return nil, fmt.Errorf("negative entry count %d", total)
	}

	bufPtr := wordBufferPool.Get().(*[]byte)
	defer wordBufferPool.Put(bufPtr)

	entries := make([]Entry, 0, min(int(total), 1<<16))
	for i := 0; i < int(total); i++ {
		var wordLen uint16
		if err := binary.Read(r, binary.LittleEndian, &wordLen); err != nil {
			return nil, fmt.Errorf("entry %d: reading word length: %w", i, err)
		}

		if cap(*bufPtr) < int(wordLen) {
			*bufPtr = make([]byte, wordLen)
		}
		wordBytes := (*bufPtr)[:wordLen]
		if _, err := io.ReadFull(r, wordBytes); err != nil {
			return nil, fmt.Errorf("entry %d: reading word: %w", i, err)
		}
		word := string(wordBytes)

		var freq uint32
		if err := binary.Read(r, binary.LittleEndian, &freq); err != nil {
			return nil, fmt.Errorf("entry %d (%q): reading frequency: %w", i, word, err)
		}
		if word == "" {
			continue
		}
		entries = append(entries, Entry{Term: word, Weight: int(freq)})
	}
	return entries, nil
}

// WriteBinary writes entries in the layout read by ReadBinary.
func WriteBinary(w io.Writer, entries []Entry) error {
	bw := bufio.NewWriter(w)
	if err := binary.Write(bw, binary.LittleEndian, int32(len(entries))); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, e := range entries {
		if len(e.Term) > math.MaxUint16 {
			return fmt.Errorf("term %.16q... is longer than %d bytes", e.Term, math.MaxUint16)
		}
		if e.Weight < 0 || uint64(e.Weight) > math.MaxUint32 {
			return fmt.Errorf("weight %d of %q does not fit the binary layout", e.Weight, e.Term)
		}
		if err := binary.Write(bw, binary.LittleEndian, uint16(len(e.Term))); err != nil {
			return fmt.Errorf("writing word length: %w", err)
		}
		if _, err := bw.WriteString(e.Term); err != nil {
			return fmt.Errorf("writing word %s: %w", e.Term, err)
		}
		if err := binary.Write(bw, binary.LittleEndian, uint32(e.Weight)); err != nil {
			return fmt.Errorf("writing frequency for word %s: %w", e.Term, err)
		}
	}
	return bw.Flush()
}

func parseWeight(s string) (int, error) {
	weight, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: bad count %q", ErrInvalidEntry, s)
	}
	if weight < 0 {
		return 0, fmt.Errorf("%w: negative count %d", ErrInvalidEntry, weight)
	}
	return weight, nil
}
