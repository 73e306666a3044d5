// Package tracksearch indexes pull requests and work items from a tracker
// and answers natural-language queries over them with hybrid search.
//
// A query such as "priority 1 bugs in Lerum last week" is parsed into
// structured filters plus residual text. The residual text is matched
// lexically and, when an embedder is configured, semantically; the two
// rankings are merged with Reciprocal Rank Fusion.
//
// Documents live either in Redis 8+ (RediSearch and RedisJSON) or in an
// embedded SQLite database with a Bleve text index:
//
//	client, _ := tracksearch.New(ctx,
//	    tracksearch.WithRedis([]string{"localhost:6379"}, ""),
//	    tracksearch.WithOpenAI(tracksearch.OpenAIConfig{
//	        APIKey:     os.Getenv("OPENAI_API_KEY"),
//	        Model:      "text-embedding-3-small",
//	        Dimensions: 1536,
//	    }),
//	    tracksearch.WithSnapshotSource("data/snapshots"),
//	)
//	defer client.Close()
//
//	stats, _ := client.SyncProject(ctx, "acme", "Web")
//	results, _ := client.Search(ctx, "draft PRs about caching", 10)
package tracksearch
