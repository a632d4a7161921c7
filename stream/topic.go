package stream

import (
	"fmt"
	"strings"
	"sync"
)

// Topic names:
//
//	jobs             every job event
//	type:<jobType>   events for every job of one type
//	job:<jobID>      events for one job
const TopicJobs = "jobs"

// JobTopic returns the topic name for a specific job.
func JobTopic(jobID string) string { return "job:" + jobID }

// TypeTopic returns the topic name for a job type.
func TypeTopic(jobType string) string { return "type:" + jobType }

// ValidateTopic checks whether a topic string is valid.
func ValidateTopic(topic string) error {
	if topic == TopicJobs {
		return nil
	}
	kind, name, ok := strings.Cut(topic, ":")
	if !ok || name == "" {
		return fmt.Errorf("stream: invalid topic %q", topic)
	}
	if kind != "job" && kind != "type" {
		return fmt.Errorf("stream: unknown topic kind %q", kind)
	}
	return nil
}

// topicsFor lists the topics an event is routed to, broadest first.
func topicsFor(evt *Event) []string {
	out := make([]string, 0, 3)
	out = append(out, TopicJobs)
	if evt.JobType != "" {
		out = append(out, TypeTopic(evt.JobType))
	}
	if evt.Topic != "" {
		out = append(out, evt.Topic)
	}
	return out
}

// router maps topics to the subscribers listening on them.
type router struct {
	mu   sync.RWMutex
	subs map[string][]*Subscriber
}

func newRouter() *router {
	return &router{subs: make(map[string][]*Subscriber)}
}

// add puts sub on each of its topics.
func (r *router) add(sub *Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range sub.topics {
		r.subs[t] = append(r.subs[t], sub)
	}
}

// remove takes sub off its topics. Topics left without listeners are
// forgotten.
func (r *router) remove(sub *Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range sub.topics {
		list := r.subs[t]
		for i, s := range list {
			if s == sub {
				list = append(list[:i:i], list[i+1:]...)
				break
			}
		}
		if len(list) == 0 {
			delete(r.subs, t)
		} else {
			r.subs[t] = list
		}
	}
}

// route delivers evt to every subscriber on any of the topics. A
// subscriber on several of them gets the event once; subscribers whose
// filter rejects it are skipped and not counted. A subscriber that cannot
// take a terminal event is closed as overflowed, so its reader stops
// waiting for an outcome that will never arrive on the channel.
func (r *router) route(topics []string, evt *Event) (delivered, dropped int) {
	r.mu.RLock()
	targets := make(map[*Subscriber]struct{})
	for _, t := range topics {
		for _, s := range r.subs[t] {
			targets[s] = struct{}{}
		}
	}
	r.mu.RUnlock()

	for s := range targets {
		if s.filter != nil && !s.filter(evt) {
			continue
		}
		if s.send(evt) {
			delivered++
			continue
		}
		dropped++
		if evt.Type.Terminal() {
			s.close(true)
		}
	}
	return delivered, dropped
}

// topicCount returns the number of topics with at least one listener.
func (r *router) topicCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}
