package fastq

import (
	"bufio"
	"bytes"
	"io"
	"math/rand"

	"github.com/pkg/errors"
)

const (
	linesPerRead = 4
)

// Downsample writes reads from in to out.  Reads are randomly selected for
// inclusion in the output at the given sampling rate.  The same seed and
// input always select the same reads.
func Downsample(rate float64, seed int64, in io.Reader, out io.Writer) error {
	if rate < 0.0 || rate > 1.0 {
		return errors.New("rate must be between 0 and 1 (inclusive)")
	}
	random := rand.New(rand.NewSource(seed))
	scanner := bufio.NewScanner(in)
	for {
		read, err := scanRead(scanner)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "error reading FASTQ input")
		}
		if random.Float64() < rate {
			if _, err := out.Write(read); err != nil {
				return err
			}
		}
	}
}

func scanRead(scanner *bufio.Scanner) ([]byte, error) {
	var buffer bytes.Buffer
	for i := 0; i < linesPerRead; i++ {
		if !scanner.Scan() {
			if i == 0 && scanner.Err() == nil {
				// Reached end of input.
				return nil, io.EOF
			}
			// Something went wrong.
			if scanner.Err() != nil {
				return nil, scanner.Err()
			}
			return nil, errors.Errorf("too few lines in FASTQ record: want %d, got %d", linesPerRead, i)
		}
		buffer.WriteString(scanner.Text())
		buffer.WriteString("\n")
	}
	return buffer.Bytes(), nil
}
