package sink

import (
	"context"
	"encoding/csv"
	"encoding/gob"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ppiankov/gazetteer/internal/model"
)

var (
	testInc = model.Incorporation{
		ID:          "1234567 Alberta Ltd.",
		CompanyType: "Numbered Alberta Corporation",
		Date:        "2006 AUG 03",
		Address:     "100 4 Ave SW, Calgary Alberta T2P 1J9",
		Number:      "2012345678",
	}
	testNC = model.NameChange{
		ID:            "Foothills Widgets Ltd.",
		CompanyType:   "Named Alberta Corporation",
		Date:          "2001 JUN 19",
		NewName:       "Summit Widgets Ltd.",
		EffectiveDate: "2006 SEP 01",
		Number:        "2091234567",
	}
	testID = model.DocumentID{Year: 2006, Stem: "17_Sep15"}
)

func TestBatch_FileName(t *testing.T) {
	doc := DocumentBatch(testID, nil, nil)
	assert.Equal(t, filepath.Join("2006", "17_Sep15_incorporations.csv"), doc.FileName(KindIncorporations, ".csv"))

	master := MasterBatch(model.YearRange{From: 2006, To: 2018}, nil, nil)
	assert.Equal(t, "namechanges_masterlist_2006-2018.json", master.FileName(KindNameChanges, ".json"))
	assert.True(t, master.Master)
}

func TestValidateFormat(t *testing.T) {
	for _, f := range Formats {
		assert.NoError(t, ValidateFormat(f))
	}
	assert.NoError(t, ValidateFormat("CSV"))
	assert.Error(t, ValidateFormat("xlsx"))
}

func TestCSVSink_Write(t *testing.T) {
	dir := t.TempDir()
	s := NewCSVSink(dir)

	batch := DocumentBatch(testID, []model.Incorporation{testInc}, []model.NameChange{testNC})
	require.NoError(t, s.Write(context.Background(), batch))
	require.NoError(t, s.Close())

	rows := readCSV(t, filepath.Join(dir, "2006", "17_Sep15_incorporations.csv"))
	require.Len(t, rows, 2)
	assert.Equal(t, model.IncorporationHeader, rows[0])
	assert.Equal(t, testInc.Row(), rows[1])

	rows = readCSV(t, filepath.Join(dir, "2006", "17_Sep15_namechanges.csv"))
	require.Len(t, rows, 2)
	assert.Equal(t, model.NameChangeHeader, rows[0])
	assert.Equal(t, testNC.Row(), rows[1])
}

func TestCSVSink_EmptyBatchWritesHeaders(t *testing.T) {
	dir := t.TempDir()
	batch := MasterBatch(model.YearRange{From: 2006, To: 2006}, []model.Incorporation{}, []model.NameChange{})
	require.NoError(t, NewCSVSink(dir).Write(context.Background(), batch))

	rows := readCSV(t, filepath.Join(dir, "incorporations_masterlist_2006-2006.csv"))
	assert.Equal(t, [][]string{model.IncorporationHeader}, rows)
}

func TestJSONSink_Write(t *testing.T) {
	dir := t.TempDir()
	batch := MasterBatch(model.YearRange{From: 2006, To: 2018}, []model.Incorporation{testInc}, []model.NameChange{testNC})
	require.NoError(t, NewJSONSink(dir).Write(context.Background(), batch))

	data, err := os.ReadFile(filepath.Join(dir, "incorporations_masterlist_2006-2018.json"))
	require.NoError(t, err)

	var incs []model.Incorporation
	require.NoError(t, json.Unmarshal(data, &incs))
	assert.Equal(t, []model.Incorporation{testInc}, incs)
}

func TestGobSink_Write(t *testing.T) {
	dir := t.TempDir()
	s := NewGobSink(dir)

	require.NoError(t, s.Write(context.Background(), DocumentBatch(testID, []model.Incorporation{testInc}, nil)))
	_, err := os.Stat(filepath.Join(dir, "2006"))
	assert.True(t, os.IsNotExist(err), "per-document batches are not written as gob")

	batch := MasterBatch(model.YearRange{From: 2006, To: 2018}, []model.Incorporation{testInc}, []model.NameChange{testNC})
	require.NoError(t, s.Write(context.Background(), batch))

	f, err := os.Open(filepath.Join(dir, "namechanges_masterlist_2006-2018.gob"))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	var ncs []model.NameChange
	require.NoError(t, gob.NewDecoder(f).Decode(&ncs))
	assert.Equal(t, []model.NameChange{testNC}, ncs)
}

type fakeInserter struct {
	docs []interface{}
	err  error
}

func (f *fakeInserter) InsertMany(_ context.Context, docs []interface{}, _ ...*options.InsertManyOptions) (*mongo.InsertManyResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.docs = append(f.docs, docs...)
	return &mongo.InsertManyResult{}, nil
}

func TestMongoSink_Write(t *testing.T) {
	incs, ncs := &fakeInserter{}, &fakeInserter{}
	s := &MongoSink{incorporations: incs, nameChanges: ncs}

	batch := DocumentBatch(testID, []model.Incorporation{testInc}, []model.NameChange{testNC})
	require.NoError(t, s.Write(context.Background(), batch))

	require.Len(t, incs.docs, 1)
	assert.Equal(t, incorporationDoc{Incorporation: testInc, Document: "2006/17_Sep15"}, incs.docs[0])
	require.Len(t, ncs.docs, 1)
	assert.Equal(t, nameChangeDoc{NameChange: testNC, Document: "2006/17_Sep15"}, ncs.docs[0])

	master := MasterBatch(model.YearRange{From: 2006, To: 2006}, []model.Incorporation{testInc}, nil)
	require.NoError(t, s.Write(context.Background(), master))
	assert.Len(t, incs.docs, 1, "master batch must not insert duplicates")

	assert.NoError(t, s.Close())
}

func TestMongoSink_InsertError(t *testing.T) {
	s := &MongoSink{incorporations: &fakeInserter{err: errors.New("boom")}, nameChanges: &fakeInserter{}}
	err := s.Write(context.Background(), DocumentBatch(testID, []model.Incorporation{testInc}, nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2006/17_Sep15")
}

type fakePublisher struct {
	msgs []amqp.Publishing
	keys []string
}

func (f *fakePublisher) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.keys = append(f.keys, exchange+"|"+key)
	f.msgs = append(f.msgs, msg)
	return nil
}

func TestAMQPSink_Write(t *testing.T) {
	pub := &fakePublisher{}
	s := &AMQPSink{pub: pub, queue: "gazette_records"}

	batch := DocumentBatch(testID, []model.Incorporation{testInc}, []model.NameChange{testNC})
	require.NoError(t, s.Write(context.Background(), batch))
	require.Len(t, pub.msgs, 2)

	assert.Equal(t, []string{"|gazette_records", "|gazette_records"}, pub.keys)
	assert.Equal(t, KindIncorporations, pub.msgs[0].Type)
	assert.Equal(t, KindNameChanges, pub.msgs[1].Type)
	assert.Equal(t, amqp.Persistent, pub.msgs[0].DeliveryMode)
	assert.Equal(t, "2006/17_Sep15", pub.msgs[0].Headers["document"])

	var got struct {
		Kind     string           `json:"kind"`
		Document string           `json:"document"`
		Record   model.NameChange `json:"record"`
	}
	require.NoError(t, json.Unmarshal(pub.msgs[1].Body, &got))
	assert.Equal(t, testNC, got.Record)

	require.NoError(t, s.Write(context.Background(), MasterBatch(model.YearRange{From: 2006, To: 2006}, []model.Incorporation{testInc}, nil)))
	assert.Len(t, pub.msgs, 2)

	assert.NoError(t, s.Close())
}

func TestOpen_FileFormats(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Output.Dir = t.TempDir()

	for format, want := range map[string]Sink{
		"csv":  &CSVSink{},
		"json": &JSONSink{},
		"gob":  &GobSink{},
	} {
		cfg.Output.Format = format
		s, err := Open(context.Background(), cfg)
		require.NoError(t, err, format)
		assert.IsType(t, want, s)
	}

	cfg.Output.Format = "parquet"
	_, err := Open(context.Background(), cfg)
	assert.Error(t, err)
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}
