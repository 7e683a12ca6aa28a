package storage

// Schema creates the transcript tables. Shingles are stored one per row with
// an index on the shingle text so overlap scoring touches only matching rows.
// meta is a CBOR map of headers and tokens; body_codec says whether body is
// raw or zstd-compressed.
const Schema = `
CREATE TABLE IF NOT EXISTS records (
    idx INTEGER PRIMARY KEY,
    id TEXT NOT NULL,
    status_code INTEGER NOT NULL,
    meta BLOB NOT NULL,
    body BLOB,
    body_codec INTEGER NOT NULL,
    body_size INTEGER NOT NULL,
    ngram_n INTEGER NOT NULL,
    recorded_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS shingles (
    record_idx INTEGER NOT NULL REFERENCES records(idx),
    shingle TEXT NOT NULL,
    PRIMARY KEY (record_idx, shingle)
);

CREATE INDEX IF NOT EXISTS idx_shingles_shingle ON shingles(shingle);
`

const (
	countRecordsQuery = `SELECT COUNT(*) FROM records`

	insertRecordQuery = `
INSERT INTO records (idx, id, status_code, meta, body, body_codec, body_size, ngram_n, recorded_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	insertShingleQuery = `INSERT INTO shingles (record_idx, shingle) VALUES (?, ?)`

	// bestMatchQuery scores every record by the number of its shingles found
	// in the JSON array bound to the parameter. Ordering by idx DESC on equal
	// scores keeps the latest-record-wins rule of the linear scan.
	bestMatchQuery = `
SELECT r.idx
FROM records r
LEFT JOIN shingles s
    ON s.record_idx = r.idx
   AND s.shingle IN (SELECT value FROM json_each(?))
GROUP BY r.idx
ORDER BY COUNT(s.shingle) DESC, r.idx DESC
LIMIT 1`

	selectRecordQuery = `
SELECT idx, id, status_code, meta, body, body_codec, body_size, ngram_n, recorded_at
FROM records
WHERE idx = ?`

	selectAllRecordsQuery = `
SELECT idx, id, status_code, meta, body, body_codec, body_size, ngram_n, recorded_at
FROM records
ORDER BY idx`

	selectShinglesQuery = `SELECT shingle FROM shingles WHERE record_idx = ? ORDER BY shingle`

	selectAllShinglesQuery = `SELECT record_idx, shingle FROM shingles ORDER BY record_idx, shingle`
)
