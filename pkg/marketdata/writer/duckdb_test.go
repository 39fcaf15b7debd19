package writer

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-ensemble/internal/types"
	"github.com/rxtech-lab/argo-ensemble/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type DuckDBWriterTestSuite struct {
	suite.Suite
	tempDir string
}

func TestDuckDBWriterSuite(t *testing.T) {
	suite.Run(t, new(DuckDBWriterTestSuite))
}

func (suite *DuckDBWriterTestSuite) SetupTest() {
	suite.tempDir = suite.T().TempDir()
}

func (suite *DuckDBWriterTestSuite) bar(hour int, price float64) types.Bar {
	return types.Bar{
		Time:   time.Date(2024, 1, 1, hour, 0, 0, 0, time.UTC),
		Open:   price,
		High:   price + 1,
		Low:    price - 1,
		Close:  price + 0.5,
		Volume: 1000,
	}
}

func (suite *DuckDBWriterTestSuite) TestNewDuckDBWriter() {
	outputPath := filepath.Join(suite.tempDir, "test.parquet")
	writer := NewDuckDBWriter(outputPath, nil)

	duckWriter, ok := writer.(*DuckDBWriter)
	suite.True(ok)
	suite.Equal(outputPath, writer.GetOutputPath())
	suite.Nil(duckWriter.db)
	suite.Nil(duckWriter.tx)
	suite.Nil(duckWriter.stmt)
}

func (suite *DuckDBWriterTestSuite) TestWriteWithoutInitialize() {
	writer := NewDuckDBWriter(filepath.Join(suite.tempDir, "no_init.parquet"), nil)

	err := writer.Write("BTCUSDT", suite.bar(0, 100))
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeMarketDataWriteFailed))

	_, err = writer.Finalize()
	suite.Error(err)
}

func (suite *DuckDBWriterTestSuite) TestWriteAndFinalize() {
	outputPath := filepath.Join(suite.tempDir, "BTCUSDT.parquet")
	writer := NewDuckDBWriter(outputPath, nil)
	suite.Require().NoError(writer.Initialize())

	defer writer.Close()

	// written out of order, exported sorted by time
	for _, hour := range []int{2, 0, 1} {
		suite.Require().NoError(writer.Write("BTCUSDT", suite.bar(hour, float64(100+hour))))
	}

	path, err := writer.Finalize()
	suite.Require().NoError(err)
	suite.Equal(outputPath, path)

	_, err = os.Stat(path)
	suite.Require().NoError(err)

	db, err := sql.Open("duckdb", "")
	suite.Require().NoError(err)

	defer db.Close()

	rows, err := db.Query(fmt.Sprintf(`SELECT time, symbol, open FROM read_parquet('%s')`, path))
	suite.Require().NoError(err)

	defer rows.Close()

	var opens []float64

	for rows.Next() {
		var (
			t      time.Time
			symbol string
			open   float64
		)

		suite.Require().NoError(rows.Scan(&t, &symbol, &open))
		suite.Equal("BTCUSDT", symbol)

		opens = append(opens, open)
	}

	suite.Equal([]float64{100, 101, 102}, opens)
}

func (suite *DuckDBWriterTestSuite) TestCloseIsIdempotent() {
	writer := NewDuckDBWriter(filepath.Join(suite.tempDir, "close.parquet"), nil)
	suite.Require().NoError(writer.Initialize())

	suite.NoError(writer.Close())
	suite.NoError(writer.Close())
}
