package bolt

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	bbolt "go.etcd.io/bbolt"
	bberrors "go.etcd.io/bbolt/errors"

	"github.com/haukened/rr-screen/internal/screen/domain"
	"github.com/haukened/rr-screen/internal/screen/repos/store"
)

// ErrCorrupt is returned when a persisted value cannot be decoded.
var ErrCorrupt = errors.New("store: corrupt record")

var (
	bucketRules = []byte("rules")
	bucketAudit = []byte("audit")
	bucketMeta  = []byte("meta")

	metaRulesSaved = []byte("rules_saved")
	metaAuditSaved = []byte("audit_saved")
)

// boltStore implements store.Store using bbolt. Each collection lives in its
// own bucket keyed by an 8-byte big-endian position so that cursor order is
// stored order.
type boltStore struct {
	db  *bbolt.DB
	now func() time.Time
}

type bucketCreator interface {
	CreateBucketIfNotExists(name []byte) (*bbolt.Bucket, error)
}

type bucketDeleter interface {
	DeleteBucket(name []byte) error
}

// Seams for tests.
var (
	ensureBucketsFn = ensureBuckets
	deleteBucketsFn = deleteBuckets
	writeMetaFn     = writeMeta
)

// New opens (or creates) a Bolt database at path and ensures buckets exist.
func New(path string) (store.Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if err := db.Update(func(tx *bbolt.Tx) error { return ensureBucketsFn(tx) }); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &boltStore{db: db, now: time.Now}, nil
}

func ensureBuckets(tx bucketCreator) error {
	for _, name := range [][]byte{bucketRules, bucketAudit, bucketMeta} {
		if _, err := tx.CreateBucketIfNotExists(name); err != nil {
			return fmt.Errorf("create bucket %s: %w", name, err)
		}
	}
	return nil
}

// deleteBuckets removes the named buckets, ignoring ones that do not exist.
func deleteBuckets(tx bucketDeleter, names ...[]byte) error {
	for _, name := range names {
		if err := tx.DeleteBucket(name); err != nil && !errors.Is(err, bberrors.ErrBucketNotFound) {
			return fmt.Errorf("delete bucket %s: %w", name, err)
		}
	}
	return nil
}

func writeMeta(tx *bbolt.Tx, key []byte, unix int64) error {
	b := tx.Bucket(bucketMeta)
	if b == nil {
		return bberrors.ErrBucketNotFound
	}
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(unix))
	return b.Put(key, buf)
}

func (s *boltStore) Close() error { return s.db.Close() }

func (s *boltStore) LoadRules() ([]domain.Rule, error) {
	var rules []domain.Rule
	err := s.db.View(func(tx *bbolt.Tx) error {
		return forEach(tx, bucketRules, func(v []byte) error {
			var r domain.Rule
			if err := json.Unmarshal(v, &r); err != nil {
				return fmt.Errorf("%w: rule: %v", ErrCorrupt, err)
			}
			rules = append(rules, r)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return rules, nil
}

func (s *boltStore) SaveRules(rules []domain.Rule) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return rewrite(tx, bucketRules, len(rules), func(i int) any { return rules[i] }, metaRulesSaved, s.now().Unix())
	})
}

func (s *boltStore) LoadAudit() ([]domain.AuditEntry, error) {
	var entries []domain.AuditEntry
	err := s.db.View(func(tx *bbolt.Tx) error {
		return forEach(tx, bucketAudit, func(v []byte) error {
			var e domain.AuditEntry
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("%w: audit entry: %v", ErrCorrupt, err)
			}
			entries = append(entries, e)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *boltStore) SaveAudit(entries []domain.AuditEntry) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return rewrite(tx, bucketAudit, len(entries), func(i int) any { return entries[i] }, metaAuditSaved, s.now().Unix())
	})
}

func (s *boltStore) Stats() store.Stats {
	st := store.Stats{}
	_ = s.db.View(func(tx *bbolt.Tx) error {
		if b := tx.Bucket(bucketRules); b != nil {
			st.Rules = b.Stats().KeyN
		}
		if b := tx.Bucket(bucketAudit); b != nil {
			st.AuditEntries = b.Stats().KeyN
		}
		if b := tx.Bucket(bucketMeta); b != nil {
			st.RulesSavedUnix = readUnix(b.Get(metaRulesSaved))
			st.AuditSavedUnix = readUnix(b.Get(metaAuditSaved))
		}
		return nil
	})
	return st
}

// forEach visits values of bucket in key order. A missing bucket is empty.
func forEach(tx *bbolt.Tx, bucket []byte, visit func(v []byte) error) error {
	b := tx.Bucket(bucket)
	if b == nil {
		return nil
	}
	return b.ForEach(func(_, v []byte) error { return visit(v) })
}

// rewrite replaces the whole bucket with n JSON values and stamps the save
// time. It runs inside the caller's transaction so a failure leaves the
// previous contents in place.
func rewrite(tx *bbolt.Tx, bucket []byte, n int, item func(i int) any, metaKey []byte, unix int64) error {
	if err := deleteBucketsFn(tx, bucket); err != nil {
		return err
	}
	if err := ensureBucketsFn(tx); err != nil {
		return err
	}
	b := tx.Bucket(bucket)
	for i := 0; i < n; i++ {
		v, err := json.Marshal(item(i))
		if err != nil {
			return fmt.Errorf("encode %s[%d]: %w", bucket, i, err)
		}
		if err := b.Put(seqKey(uint64(i)), v); err != nil {
			return err
		}
	}
	return writeMetaFn(tx, metaKey, unix)
}

func seqKey(i uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, i)
	return k
}

func readUnix(v []byte) int64 {
	if len(v) != 8 {
		return 0
	}
	return int64(binary.BigEndian.Uint64(v))
}
