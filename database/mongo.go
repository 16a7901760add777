package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/hatlonely/bex/query"
	"github.com/hatlonely/bex/schema"
)

// MongoOptions MongoDB 连接选项
type MongoOptions struct {
	URI         string        `cfg:"uri"`
	Host        string        `cfg:"host" def:"localhost"`
	Port        int           `cfg:"port" def:"27017"`
	Database    string        `cfg:"database"`
	Username    string        `cfg:"username"`
	Password    string        `cfg:"password"`
	AuthSource  string        `cfg:"authSource" def:"admin"`
	Timeout     time.Duration `cfg:"timeout" def:"30s"`
	MaxPoolSize uint64        `cfg:"maxPoolSize" def:"100"`
}

// Mongo MongoDB 后端实现
// 单机部署不支持事务，WithTx 会退化为顺序执行，首个错误中断后续写入
type Mongo struct {
	mongoExecutor
	client *mongo.Client
}

func NewMongoWithOptions(opts *MongoOptions) (*Mongo, error) {
	uri := opts.URI
	if uri == "" {
		if opts.Username != "" && opts.Password != "" {
			uri = fmt.Sprintf("mongodb://%s:%s@%s:%d/%s?authSource=%s",
				opts.Username, opts.Password, opts.Host, opts.Port, opts.Database, opts.AuthSource)
		} else {
			uri = fmt.Sprintf("mongodb://%s:%d/%s", opts.Host, opts.Port, opts.Database)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
	defer cancel()

	clientOptions := options.Client().ApplyURI(uri)
	clientOptions.SetMaxPoolSize(opts.MaxPoolSize)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, errors.WithMessage(err, "mongo.Connect failed")
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, errors.WithMessage(err, "mongo ping failed")
	}

	return &Mongo{
		mongoExecutor: mongoExecutor{database: client.Database(opts.Database)},
		client:        client,
	}, nil
}

// Migrate 根据表结构定义创建索引，主键映射为唯一索引
func (m *Mongo) Migrate(ctx context.Context, table *schema.Table) error {
	if err := table.Validate(); err != nil {
		return err
	}

	collection := m.database.Collection(table.Name)

	pkKeys := bson.D{}
	for _, pk := range table.PrimaryKey {
		pkKeys = append(pkKeys, bson.E{Key: pk, Value: 1})
	}
	models := []mongo.IndexModel{
		{Keys: pkKeys, Options: options.Index().SetUnique(true)},
	}
	for _, idx := range table.Indexes {
		keys := bson.D{}
		for _, field := range idx.Fields {
			keys = append(keys, bson.E{Key: field, Value: 1})
		}
		models = append(models, mongo.IndexModel{
			Keys:    keys,
			Options: options.Index().SetUnique(idx.Unique).SetName(idx.Name),
		})
	}

	if _, err := collection.Indexes().CreateMany(ctx, models); err != nil {
		return errors.WithMessagef(err, "create indexes for %s failed", table.Name)
	}
	return nil
}

func (m *Mongo) BeginTx(ctx context.Context) (Transaction, error) {
	session, err := m.client.StartSession()
	if err != nil {
		return nil, errors.WithMessage(err, "mongo start session failed")
	}
	if err := session.StartTransaction(); err != nil {
		session.EndSession(ctx)
		return nil, errors.WithMessage(err, "mongo start transaction failed")
	}
	return &MongoTransaction{
		mongoExecutor: mongoExecutor{
			database: m.database,
			sess:     mongo.NewSessionContext(ctx, session),
		},
		session: session,
	}, nil
}

func (m *Mongo) WithTx(ctx context.Context, fn func(tx Executor) error) error {
	session, err := m.client.StartSession()
	if err != nil {
		return fn(&m.mongoExecutor)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (any, error) {
		return nil, fn(&mongoExecutor{database: m.database, sess: sessCtx})
	})
	if err != nil && transactionUnsupported(err) {
		// 单机部署没有副本集时退化为无事务顺序执行。服务端在事务内的
		// 第一条命令上就会报错，此时事务内的写入尚未生效
		return fn(&m.mongoExecutor)
	}
	return err
}

// transactionUnsupported 判断报错是否为服务端不支持多文档事务。
// 单机 mongod 能建会话，但事务命令会报 IllegalOperation:
// "Transaction numbers are only allowed on a replica set member or mongos"
func transactionUnsupported(err error) bool {
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.Code == 20 && strings.Contains(cmdErr.Message, "Transaction numbers")
	}
	return false
}

func (m *Mongo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

// MongoTransaction 基于会话的事务实现
type MongoTransaction struct {
	mongoExecutor
	session mongo.Session
}

func (tx *MongoTransaction) Commit() error {
	ctx := context.Background()
	defer tx.session.EndSession(ctx)
	return tx.session.CommitTransaction(ctx)
}

func (tx *MongoTransaction) Rollback() error {
	ctx := context.Background()
	defer tx.session.EndSession(ctx)
	return tx.session.AbortTransaction(ctx)
}

// mongoExecutor 连接和事务共享的读写实现
// sess 非空时所有操作都在该会话上下文中执行
type mongoExecutor struct {
	database *mongo.Database
	sess     mongo.SessionContext
}

func (e *mongoExecutor) context(ctx context.Context) context.Context {
	if e.sess != nil {
		return e.sess
	}
	return ctx
}

func (e *mongoExecutor) Create(ctx context.Context, table string, record Record, opts ...CreateOption) error {
	createOptions := &CreateOptions{}
	for _, opt := range opts {
		opt(createOptions)
	}

	doc := bson.M{}
	for k, v := range record.Fields() {
		doc[k] = v
	}

	if _, err := e.database.Collection(table).InsertOne(e.context(ctx), doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			if createOptions.IgnoreConflict {
				return nil
			}
			return ErrDuplicateKey
		}
		return errors.WithMessage(err, "mongo insert failed")
	}
	return nil
}

func (e *mongoExecutor) Get(ctx context.Context, table string, pk map[string]any) (Record, error) {
	var result bson.M
	err := e.database.Collection(table).FindOne(e.context(ctx), bson.M(pk)).Decode(&result)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrRecordNotFound
		}
		return nil, errors.WithMessage(err, "mongo find failed")
	}

	delete(result, "_id")
	return NewRecord(result), nil
}

func (e *mongoExecutor) Update(ctx context.Context, table string, pk map[string]any, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	_, err := e.database.Collection(table).UpdateOne(e.context(ctx), bson.M(pk), bson.M{"$set": bson.M(fields)})
	if err != nil {
		return errors.WithMessage(err, "mongo update failed")
	}
	return nil
}

func (e *mongoExecutor) Delete(ctx context.Context, table string, pk map[string]any) error {
	if _, err := e.database.Collection(table).DeleteOne(e.context(ctx), bson.M(pk)); err != nil {
		return errors.WithMessage(err, "mongo delete failed")
	}
	return nil
}

func (e *mongoExecutor) Find(ctx context.Context, table string, q query.Query, opts ...FindOption) ([]Record, error) {
	findOptions := &FindOptions{}
	for _, opt := range opts {
		opt(findOptions)
	}

	filter, err := q.ToMongo()
	if err != nil {
		return nil, err
	}

	mongoOptions := options.Find()
	if findOptions.OrderBy != "" {
		direction := 1
		if findOptions.OrderDesc {
			direction = -1
		}
		mongoOptions.SetSort(bson.D{{Key: findOptions.OrderBy, Value: direction}})
	}
	if findOptions.Limit > 0 {
		mongoOptions.SetLimit(int64(findOptions.Limit))
	}
	if findOptions.Offset > 0 {
		mongoOptions.SetSkip(int64(findOptions.Offset))
	}

	cursor, err := e.database.Collection(table).Find(e.context(ctx), bson.M(filter), mongoOptions)
	if err != nil {
		return nil, errors.WithMessage(err, "mongo find failed")
	}
	defer cursor.Close(ctx)

	var records []Record
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, errors.WithMessage(err, "mongo decode failed")
		}
		delete(doc, "_id")
		records = append(records, NewRecord(doc))
	}

	return records, cursor.Err()
}

func (e *mongoExecutor) BatchCreate(ctx context.Context, table string, records []Record, opts ...CreateOption) error {
	for _, record := range records {
		if err := e.Create(ctx, table, record, opts...); err != nil {
			return err
		}
	}
	return nil
}

func (e *mongoExecutor) BatchDelete(ctx context.Context, table string, pks []map[string]any) error {
	for _, pk := range pks {
		if err := e.Delete(ctx, table, pk); err != nil {
			return err
		}
	}
	return nil
}
