// Copyright (c) 2019 Uber Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


/*
Package deadlinequeue implements a deadline queue.

Items implementing QueueItem are enqueued with a deadline and a single
consumer blocks in Dequeue until the earliest deadline expires. An item
can be rescheduled to an earlier deadline or removed before it fires.
*/
package deadlinequeue
