/*
Package notify implements the in-process change notification bus.

Writers publish storagemodels.Changes naming the relations they touched.
Readers subscribe with a relation filter and receive every event whose
relations intersect it:

	sub := bus.Subscribe("users", "tweets")
	defer sub.Cancel()

	for {
	    select {
	    case <-sub.Ready():
	        for _, c := range sub.Drain() {
	            log.Printf("changed: %v", c.Relations)
	        }
	    case <-sub.Done():
	        return
	    }
	}

Delivery is fan-out to the subscribers present at publish time. Each
subscriber has its own unbounded queue, so a slow reader never blocks a
writer or another reader. Cancel is immediate and idempotent.
*/
package notify
