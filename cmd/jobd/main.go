// Command jobd is a job queue for distributing runs over many machines.
// Workers poll POST /jobs/claim, run the solver, and report back to
// POST /jobs/:id/result.
package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func createJob(jobsCollection *mongo.Collection) gin.HandlerFunc {
	return func(c *gin.Context) {
		var spec JobSpec
		if err := c.ShouldBindJSON(&spec); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if spec.InitStrategy == "" {
			spec.InitStrategy = "random"
		}
		j := job{
			TimeCreated: time.Now(),
			Spec:        spec,
			Status:      StatusPending,
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		result, err := jobsCollection.InsertOne(ctx, j)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": result.InsertedID})
	}
}

func getJob(jobsCollection *mongo.Collection) gin.HandlerFunc {
	return func(c *gin.Context) {
		oid, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		var j job
		if err := jobsCollection.FindOne(ctx, bson.M{"_id": oid}).Decode(&j); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, j)
	}
}

func listJobs(jobsCollection *mongo.Collection) gin.HandlerFunc {
	return func(c *gin.Context) {
		filter := bson.M{}
		if status := c.Query("status"); status != "" {
			filter["status"] = status
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		cursor, err := jobsCollection.Find(ctx, filter)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		jobs := make([]job, 0)
		if err := cursor.All(ctx, &jobs); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, jobs)
	}
}

// updateJob changes the spec of a job that has not been claimed yet.
func updateJob(jobsCollection *mongo.Collection) gin.HandlerFunc {
	return func(c *gin.Context) {
		oid, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}
		var spec JobSpec
		if err := c.ShouldBindJSON(&spec); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		filter := bson.M{"_id": oid, "status": StatusPending}
		update := bson.M{"$set": bson.M{"spec": spec}}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		result, err := jobsCollection.UpdateOne(ctx, filter, update)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// claimJob atomically hands the oldest pending job to a worker.
func claimJob(jobsCollection *mongo.Collection) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			WorkerID string `json:"workerId" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		filter := bson.M{"status": StatusPending}
		update := bson.M{"$set": bson.M{"status": StatusRunning, "workerId": req.WorkerID}}
		opts := options.FindOneAndUpdate().
			SetSort(bson.M{"timeCreated": 1}).
			SetReturnDocument(options.After)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		var j struct {
			ID   primitive.ObjectID `bson:"_id"`
			Spec JobSpec            `bson:"spec"`
		}
		err := jobsCollection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&j)
		if err == mongo.ErrNoDocuments {
			c.JSON(http.StatusNotFound, gin.H{"error": "no pending jobs"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": j.ID.Hex(), "spec": j.Spec})
	}
}

func reportResult(jobsCollection *mongo.Collection) gin.HandlerFunc {
	return func(c *gin.Context) {
		oid, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}
		var res JobResult
		if err := c.ShouldBindJSON(&res); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		status := StatusDone
		if res.Error != "" {
			status = StatusFailed
		}
		filter := bson.M{"_id": oid, "status": StatusRunning}
		update := bson.M{"$set": bson.M{"status": status, "result": res}}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		result, err := jobsCollection.UpdateOne(ctx, filter, update)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if result.MatchedCount == 0 {
			c.JSON(http.StatusConflict, gin.H{"error": "job not running"})
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func main() {
	client := connectToMongo()
	db := client.Database(getenv("MONGO_DB", "vqite"))
	jobsCollection := db.Collection(getenv("MONGO_COLLECTION", "jobs"))
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		client.Disconnect(ctx)
	}()

	r := gin.Default()
	r.POST("/jobs", createJob(jobsCollection))
	r.GET("/jobs", listJobs(jobsCollection))
	r.GET("/jobs/:id", getJob(jobsCollection))
	r.PATCH("/jobs/:id", updateJob(jobsCollection))
	r.POST("/jobs/claim", claimJob(jobsCollection))
	r.POST("/jobs/:id/result", reportResult(jobsCollection))
	r.Run(":" + getenv("PORT", "8000"))
}
