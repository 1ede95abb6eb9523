package s3req_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/adamwoolhether/s3req"
	"github.com/adamwoolhether/s3req/bucket"
	"github.com/adamwoolhether/s3req/client"
	"github.com/adamwoolhether/s3req/request"
)

func ExampleNewClient() {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "hello")
	}))
	defer ts.Close()

	c, err := s3req.NewClient(client.WithTimeout(5 * time.Second))
	if err != nil {
		fmt.Println("build error:", err)
		return
	}

	region, err := bucket.CustomRegion("", ts.URL)
	if err != nil {
		fmt.Println("region error:", err)
		return
	}

	b, err := bucket.New("greetings", region, bucket.StaticCredentials("AKID", "SECRET", ""), bucket.WithPathStyle())
	if err != nil {
		fmt.Println("bucket error:", err)
		return
	}

	ctx := context.Background()
	d, err := request.New(ctx, b, "/hello.txt", request.GetObject{})
	if err != nil {
		fmt.Println("request error:", err)
		return
	}

	data, err := c.ResponseData(ctx, d, false)
	if err != nil {
		fmt.Println("send error:", err)
		return
	}

	fmt.Println(string(data.Body))
	// Output: hello
}
