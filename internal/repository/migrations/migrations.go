package migrations

import "fmt"

const PostgresSchema = `
CREATE TABLE IF NOT EXISTS munzi (
    id UUID PRIMARY KEY,
    name VARCHAR(255) NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_munzi_created_at ON munzi(created_at);
`

// OracleSchema ignores ORA-00955 so it can run on every start.
const OracleSchema = `
BEGIN
    EXECUTE IMMEDIATE 'CREATE TABLE munzi (
        id VARCHAR2(36) PRIMARY KEY,
        name VARCHAR2(255) NOT NULL,
        created_at TIMESTAMP WITH TIME ZONE NOT NULL
    )';
EXCEPTION
    WHEN OTHERS THEN
        IF SQLCODE != -955 THEN
            RAISE;
        END IF;
END;`

func CouchbaseIndexes(bucketName string) []string {
	return []string{
		fmt.Sprintf("CREATE PRIMARY INDEX ON `%s`", bucketName),
		fmt.Sprintf("CREATE INDEX idx_munzi_created_at ON `%s`(created_at)", bucketName),
	}
}
