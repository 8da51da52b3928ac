package tele

import (
	"io"
	"os"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/juju/errors"
	"github.com/temoto/snackmachine/log2"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Journal appends transactions and errors as JSON lines.
// Error lines are told apart by the "error" key.
type Journal struct {
	Log    *log2.Log
	mu     sync.Mutex
	enc    *jsoniter.Encoder
	closer io.Closer
}

var _ Teler = &Journal{}

func NewJournal(log *log2.Log, w io.Writer) *Journal {
	j := &Journal{Log: log, enc: json.NewEncoder(w)}
	if c, ok := w.(io.Closer); ok {
		j.closer = c
	}
	return j
}

func OpenJournal(log *log2.Log, path string) (*Journal, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return nil, errors.Annotatef(err, "journal open path=%s", path)
	}
	return NewJournal(log, f), nil
}

// Transaction errors are logged, sale is already complete at this point.
func (self *Journal) Transaction(t *Transaction) {
	const tag = "tele.journal"
	self.mu.Lock()
	defer self.mu.Unlock()
	if self.enc == nil {
		self.Log.Errorf("%s closed, lost transaction id=%s", tag, t.ID)
		return
	}
	if err := self.enc.Encode(t); err != nil {
		self.Log.Errorf("%s id=%s err=%v", tag, t.ID, err)
	}
}

type errorLine struct {
	Time  time.Time `json:"time"`
	Error string    `json:"error"`
}

// Error must not be given self.Log error func, that would recurse.
func (self *Journal) Error(err error) {
	const tag = "tele.journal"
	if err == nil {
		return
	}
	self.mu.Lock()
	defer self.mu.Unlock()
	if self.enc == nil {
		return
	}
	if e := self.enc.Encode(errorLine{Time: time.Now().UTC(), Error: err.Error()}); e != nil {
		self.Log.Errorf("%s error=%v err=%v", tag, err, e)
	}
}

func (self *Journal) Close() error {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.enc = nil
	if self.closer != nil {
		c := self.closer
		self.closer = nil
		return c.Close()
	}
	return nil
}

// ReadJournal decodes all transactions from r, skipping error lines.
func ReadJournal(r io.Reader) ([]Transaction, error) {
	dec := json.NewDecoder(r)
	result := make([]Transaction, 0, 16)
	for i := 0; dec.More(); i++ {
		var raw jsoniter.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return result, errors.Annotatef(err, "journal record=%d", i)
		}
		if json.Get(raw, "error").ValueType() != jsoniter.InvalidValue {
			continue
		}
		var t Transaction
		if err := json.Unmarshal(raw, &t); err != nil {
			return result, errors.Annotatef(err, "journal record=%d", i)
		}
		result = append(result, t)
	}
	return result, nil
}
